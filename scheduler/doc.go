// Package scheduler runs batches of documents through the pipeline under a
// bounded degree of parallelism.
//
// # Architecture
//
// The scheduler wraps an ants worker pool sized to the concurrency bound.
// Each file of a batch becomes one pool task that reads the file and hands
// its bytes to the Runner (normally the pipeline coordinator). Results land
// in a preallocated slice indexed by submission order, so collection needs
// no locking. Errors and panics inside a document task are recorded on that
// file's FileResult and never disturb the rest of the batch.
//
// While a batch is in flight a monitor goroutine periodically logs host CPU
// and memory utilisation together with the rolling error count; it stops as
// soon as the last document task settles.
//
// # Constructor Return Type Pattern
//
// New returns the concrete *Scheduler since callers configure and release
// it directly; the Runner dependency is an interface so tests can observe
// scheduling behaviour without a live pipeline.
package scheduler
