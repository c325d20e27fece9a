package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/pagekeeper/internal/domain"
)

// ErrNoSnapshot is returned by Latest before anything was saved.
var ErrNoSnapshot = errors.New("repo: no snapshot stored")

// SnapshotStore keeps the summary of the most recent cycle. Save replaces
// whatever was stored before; no history is kept.
type SnapshotStore interface {
	Save(ctx context.Context, s domain.CycleSummary) error
	Latest(ctx context.Context) (domain.CycleSummary, error)
}
