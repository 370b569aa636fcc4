// Package patchy implements the graph-to-grid receptive field construction
// at the heart of the pipeline (the PATCHY-SAN technique).
//
// Given an arbitrary graph, the transform produces a fixed-shape integer
// grid regardless of the input topology:
//
//  1. Labeling assigns each node an orderable rank ([Labeling.Ranks]),
//     imposing a canonical total order with index tie-breaks.
//  2. Sequence selection ([Select]) walks that order at a fixed stride and
//     picks exactly NumNodes root nodes, padding with [Absent] when the
//     graph is too small.
//  3. Neighborhood assembly ([Assembly.Assemble]) grows a breadth-first
//     neighborhood around every root and canonicalizes it into exactly
//     NeighborhoodSize slots, root first.
//  4. Feature gather ([Gather]) turns the index grid into a feature tensor,
//     zero-filling absent slots.
//
// [Transformer] wires the stages into a pure per-graph transform. All
// stages are deterministic: identical inputs always produce bit-identical
// outputs, and two graphs that differ only by a node relabeling
// canonicalize to equivalent neighborhoods. This is what makes the output
// consumable by a standard grid convolution.
//
// Strategies are closed enumerations ([Labeling], [Assembly]) selected by
// configuration; [Config.CustomRanks] is the escape hatch for callers that
// need a domain-specific ordering.
package patchy
