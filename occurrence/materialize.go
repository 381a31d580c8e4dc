package occurrence

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/mo"
)

// Row is the persisted projection of one occurrence, scoped to the owning
// record, its version, and the rule value within the owner that produced it.
type Row struct {
	OwnerID        string
	VersionID      string
	ComponentIndex int // distinguishes multiple rule values on one owner
	SequenceIndex  int // position within the materialized set, from 0
	Start          time.Time
	End            time.Time
}

// Repository persists materialized occurrence rows. Put must replace the
// full row set for one owner/version/component atomically so a reader never
// observes a partially replaced set.
type Repository interface {
	// Put replaces all rows for the owner/version/component scope.
	Put(ctx context.Context, ownerID, versionID string, componentIndex int, rows []Row) error
	// Trim deletes rows of the scope with SequenceIndex greater than
	// maxSequence, for insert-only update strategies.
	Trim(ctx context.Context, ownerID, versionID string, componentIndex, maxSequence int) error
	// Delete removes every row of the owner/version scope, leaving sibling
	// versions untouched.
	Delete(ctx context.Context, ownerID, versionID string) error
	// List returns rows of the owner overlapping [from, to], ordered by
	// start, component and sequence.
	List(ctx context.Context, ownerID string, from, to time.Time) ([]Row, error)
}

// MaterializerConfig tunes how open-ended rules are bounded for persistence.
type MaterializerConfig struct {
	// Horizon is the precreate window: occurrences of an infinite rule are
	// persisted from the anchor up to now+Horizon.
	Horizon time.Duration
	// Clock supplies "now"; defaults to time.Now.
	Clock func() time.Time
	// Logger receives materialization events; defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultMaterializerConfig persists infinite rules two years ahead.
var DefaultMaterializerConfig = MaterializerConfig{
	Horizon: 2 * 365 * 24 * time.Hour,
}

// Materializer computes the bounded occurrence set to persist for a helper
// and keeps a Repository in sync with it. Re-running with a fresh clock is
// idempotent: the row set is replaced, never accumulated.
type Materializer struct {
	repo Repository
	cfg  MaterializerConfig
}

// NewMaterializer builds a materializer over the given repository, filling
// unset config fields with defaults.
func NewMaterializer(repo Repository, cfg MaterializerConfig) *Materializer {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultMaterializerConfig.Horizon
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Materializer{repo: repo, cfg: cfg}
}

// Materialize computes the occurrences to persist: the single occurrence for
// a non-recurring value, every occurrence for a finite rule, and occurrences
// up to now+Horizon for an infinite rule.
func (m *Materializer) Materialize(h *Helper, now time.Time) ([]Occurrence, error) {
	if !h.IsInfinite() {
		return h.GetOccurrences(Range{}, mo.None[int]())
	}
	return h.GetOccurrences(Range{End: mo.Some(now.Add(m.cfg.Horizon))}, mo.None[int]())
}

// Save recomputes the occurrence set for one owner/version/component scope
// and replaces its persisted rows. It returns the highest sequence index
// written, or -1 when the helper produced no occurrence, so the caller can
// trim stale trailing rows kept by insert-only stores.
func (m *Materializer) Save(ctx context.Context, ownerID, versionID string, componentIndex int, h *Helper) (int, error) {
	now := m.cfg.Clock()
	occs, err := m.Materialize(h, now)
	if err != nil {
		return -1, err
	}
	rows := make([]Row, len(occs))
	for i, occ := range occs {
		rows[i] = Row{
			OwnerID:        ownerID,
			VersionID:      versionID,
			ComponentIndex: componentIndex,
			SequenceIndex:  i,
			Start:          occ.Start,
			End:            occ.End,
		}
	}
	if err := m.repo.Put(ctx, ownerID, versionID, componentIndex, rows); err != nil {
		return -1, err
	}
	m.cfg.Logger.DebugContext(ctx, "materialized occurrences",
		"owner", ownerID,
		"version", versionID,
		"component", componentIndex,
		"rows", len(rows),
		"infinite", h.IsInfinite())
	return len(rows) - 1, nil
}

// Remove deletes the persisted rows of one owner/version scope.
func (m *Materializer) Remove(ctx context.Context, ownerID, versionID string) error {
	return m.repo.Delete(ctx, ownerID, versionID)
}
