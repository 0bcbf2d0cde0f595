// Package pipeline hosts the batch operations of the service: draining the
// file inbox into ticket rows, suggesting roster identities for new rows,
// and committing approved rows into the guest records. One operation runs
// at a time per Pipeline.
package pipeline

import (
	"log/slog"
	"sync"
)

// Pipeline runs the batch operations over a Runtime.
type Pipeline struct {
	rt     *Runtime
	cfg    Config
	logger *slog.Logger

	running sync.Mutex
	appends sync.Mutex
	// sheet holds the keys of rows already in the ticket sheet for the
	// current ingestion run. Guarded by appends.
	sheet map[string]struct{}
}

// New creates a Pipeline. cfg is expected to be finalized.
func New(rt *Runtime, cfg Config) *Pipeline {
	logger := rt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		rt:     rt,
		cfg:    cfg,
		logger: logger.With("system", "pipeline"),
	}
}

// Handler returns the HTTP handler for the pipeline operations.
func (p *Pipeline) Handler() *Handler {
	return NewHandler(p, p.logger)
}

func (p *Pipeline) acquire() (func(), error) {
	if !p.running.TryLock() {
		return nil, ErrBusy
	}
	return p.running.Unlock, nil
}
