package resolver

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"constref/internal/core/errors"
)

// Session owns the one index build of a resolution session. Until Index is
// first called nothing is built; afterwards the index, or the build error,
// is fixed for the session's lifetime. A build abandoned because its context
// ended is not kept, so the next call builds again.
type Session struct {
	provider Provider

	mu    sync.Mutex
	built atomic.Bool
	index *Index
	err   error
}

func NewSession(provider Provider) *Session {
	return &Session{provider: provider}
}

// Index builds the index on first use and returns the memoized result.
func (s *Session) Index(ctx context.Context) (*Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built.Load() {
		return s.index, s.err
	}

	entries, err := s.provider.ExpectedPaths(ctx)
	if err != nil {
		wrapped := errors.AddContext(err, errors.CtxOperation, "enumerate expected paths")
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return nil, wrapped
		}
		s.err = wrapped
	} else {
		s.index, s.err = NewIndex(entries)
	}
	s.built.Store(true)
	return s.index, s.err
}

// Built reports whether the build has run to completion, successfully or not.
func (s *Session) Built() bool {
	return s.built.Load()
}
