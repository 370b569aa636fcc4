// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers can register
// hooks at startup to receive events about dataset materialization and
// record store operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnSplitStart(ctx, split, total)
//	// ... materialize records ...
//	observability.Pipeline().OnSplitComplete(ctx, split, written, skipped, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the dataset materialization pipeline.
type PipelineHooks interface {
	// Split events: one sweep over a dataset split.
	OnSplitStart(ctx context.Context, split string, total int)
	OnSplitComplete(ctx context.Context, split string, written, skipped int, duration time.Duration, err error)

	// Progress is reported once per processed example as (processed, total).
	OnProgress(ctx context.Context, split string, processed, total int)

	// OnGraphSkipped records an example dropped for a shape violation.
	OnGraphSkipped(ctx context.Context, split string, index int, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from record store operations.
type StoreHooks interface {
	// OnAppend records a persisted record and its encoded size.
	OnAppend(ctx context.Context, split string, size int)

	// OnRead records a random-access record read.
	OnRead(ctx context.Context, split string, index int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnSplitStart(context.Context, string, int) {}
func (NoopPipelineHooks) OnSplitComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnProgress(context.Context, string, int, int)       {}
func (NoopPipelineHooks) OnGraphSkipped(context.Context, string, int, error) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnAppend(context.Context, string, int) {}
func (NoopStoreHooks) OnRead(context.Context, string, int)   {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	storeHooks    StoreHooks    = NoopStoreHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	storeHooks = NoopStoreHooks{}
}
