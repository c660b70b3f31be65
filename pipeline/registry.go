package pipeline

import (
	"context"
	"fmt"

	"github.com/poiesic/manualflow/core"
)

// Processor executes one pipeline stage for a document. Implementations
// read and write artifacts through the storage layer; the document row
// passed in reflects the state at stage start.
type Processor interface {
	Process(ctx context.Context, doc *core.Document) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, doc *core.Document) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, doc *core.Document) error {
	return f(ctx, doc)
}

// Registry maps each stage of the fixed sequence to its processor.
// Stages can be disabled by feature flag; a disabled stage is treated as
// satisfied and never attempted.
type Registry struct {
	processors map[core.Stage]Processor
	disabled   map[core.Stage]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[core.Stage]Processor),
		disabled:   make(map[core.Stage]bool),
	}
}

// Register binds a processor to a stage, replacing any previous binding.
func (r *Registry) Register(stage core.Stage, p Processor) {
	r.processors[stage] = p
}

// Disable marks a stage as feature-flagged off.
func (r *Registry) Disable(stage core.Stage) {
	r.disabled[stage] = true
}

// Enabled reports whether a stage should be attempted.
func (r *Registry) Enabled(stage core.Stage) bool {
	return !r.disabled[stage]
}

// ProcessorFor returns the processor bound to a stage.
// Returns ErrProcessorNotFound when the stage has no binding.
func (r *Registry) ProcessorFor(stage core.Stage) (Processor, error) {
	p, ok := r.processors[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProcessorNotFound, stage)
	}
	return p, nil
}

// AllStages returns every stage in its fixed execution order.
func (r *Registry) AllStages() []core.Stage {
	return core.AllStages()
}
