package reconcile

import (
	"context"
	"sync"

	"github.com/cockroachdb/differ/dbconn"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Session holds at most one RunResult. A new run is refused until the
// current result is reset.
type Session struct {
	mu      sync.Mutex
	running bool
	current *RunResult
}

// Run runs and summarizes a reconciliation, keeping its result. It fails
// with ErrRunInProgress while a run is executing or a result is held.
func (s *Session) Run(
	ctx context.Context, conn dbconn.Conn, logger zerolog.Logger, datasets [2]Dataset, opts ...ReconcileOpt,
) (*RunResult, error) {
	s.mu.Lock()
	if s.running || s.current != nil {
		s.mu.Unlock()
		return nil, errors.WithStack(ErrRunInProgress)
	}
	s.running = true
	s.mu.Unlock()

	result, err := Run(ctx, conn, logger, datasets, opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if err != nil {
		return nil, err
	}
	s.current = result
	return result, nil
}

// Current returns the held result, or nil.
func (s *Session) Current() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Reset drops the held result.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
