// Package graph defines the in-memory graph representation consumed by the
// receptive-field pipeline.
//
// A [Graph] pairs a node feature matrix with a weighted adjacency matrix.
// Nodes are identified by their index; there are no string IDs. The package
// also provides:
//
//   - JSON (de)serialization with a stable, deterministic layout
//     ([MarshalGraph], [ReadGraph], [WriteGraphFile])
//   - Construction of grid graphs from images ([Grid]), where every pixel
//     becomes a node with 4-connectivity
//   - Adjacency preprocessing helpers ([ScaleInvariant], [Gaussian])
//
// # Shape Invariants
//
// [Graph.Validate] enforces the shape contract relied on by downstream
// stages: the adjacency matrix must be square with one row per node, and the
// feature matrix must have exactly one row per node with a uniform channel
// count. Violations are reported with the GRAPH_SHAPE error code so callers
// can distinguish bad input data from internal failures.
package graph
