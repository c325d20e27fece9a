package memory

import (
	"context"
	"sync/atomic"

	"github.com/hamed0406/pagekeeper/internal/domain"
	"github.com/hamed0406/pagekeeper/internal/repo"
)

var _ repo.SnapshotStore = (*Store)(nil)

// Store holds the live summary. Writers swap a fresh copy in; readers load
// the pointer and never see a half-written summary.
type Store struct {
	cur atomic.Pointer[domain.CycleSummary]
}

func New() *Store {
	s := &Store{}
	ns := domain.NotStarted()
	s.cur.Store(&ns)
	return s
}

// Current returns the last committed summary.
func (s *Store) Current() domain.CycleSummary {
	return clone(*s.cur.Load())
}

func (s *Store) Put(sum domain.CycleSummary) {
	c := clone(sum)
	s.cur.Store(&c)
}

func (s *Store) Save(_ context.Context, sum domain.CycleSummary) error {
	s.Put(sum)
	return nil
}

func (s *Store) Latest(context.Context) (domain.CycleSummary, error) {
	return s.Current(), nil
}

func clone(in domain.CycleSummary) domain.CycleSummary {
	out := in
	if in.LastRun != nil {
		t := *in.LastRun
		out.LastRun = &t
	}
	out.Results = make([]domain.CycleResult, len(in.Results))
	copy(out.Results, in.Results)
	return out
}
