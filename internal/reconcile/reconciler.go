package reconcile

import (
	"context"
	"fmt"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// TargetLine is the locked state of an ancestor line a propagation writes to.
type TargetLine struct {
	ID       int64
	ParentID int64
	// RefValue is the ordered quantity or amount the aggregate is clamped
	// against.
	RefValue float64
}

// ParentLineTotal carries one line's contribution to the header percentage.
type ParentLineTotal struct {
	RefValue    float64
	TargetValue float64
}

// Store is the persistence port of the reconciler. Implementations run inside
// the submitting transaction and must lock target rows for update, so that
// two invoices billing the same order line serialize rather than race.
type Store interface {
	// SumSiblings aggregates the descriptor source over all submitted
	// invoice rows sharing the join key, subject to the descriptor
	// predicates.
	SumSiblings(ctx context.Context, d Descriptor, joinKey int64) (float64, error)
	// TargetLineForUpdate locks and returns the target line.
	TargetLineForUpdate(ctx context.Context, d Descriptor, joinKey int64) (TargetLine, error)
	// SetTargetValue writes the recomputed aggregate on the target line.
	SetTargetValue(ctx context.Context, d Descriptor, lineID int64, value float64) error
	// ParentLineTotals returns reference/target pairs of every line of the
	// parent document, for the percentage rollup.
	ParentLineTotals(ctx context.Context, d Descriptor, parentID int64) ([]ParentLineTotal, error)
	// SetParentPercent persists the rolled up percentage and status.
	SetParentPercent(ctx context.Context, d Descriptor, parentID int64, percent float64, status string) error
}

// Reconciler recomputes ancestor aggregates from the current set of submitted
// documents. Because every value is a full recompute, the same call is used
// on submit and on cancel: the cancelled document simply no longer
// contributes.
type Reconciler struct {
	store     Store
	precision int
}

// New builds a reconciler; precision bounds the overflow tolerance.
func New(store Store, precision int) *Reconciler {
	if precision <= 0 {
		precision = 2
	}
	return &Reconciler{store: store, precision: precision}
}

// SourceRow is one transaction line triggering propagation.
type SourceRow struct {
	RowNo   int
	JoinKey int64
}

// Apply runs every descriptor over the given source rows, then rolls the
// touched parents up. Rows without a join key are skipped.
func (r *Reconciler) Apply(ctx context.Context, descriptors []Descriptor, rows []SourceRow) error {
	for _, d := range descriptors {
		parents, err := r.applyOne(ctx, d, rows)
		if err != nil {
			return err
		}
		if d.PercentField == "" {
			continue
		}
		for parentID := range parents {
			if err := r.rollupParent(ctx, d, parentID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Reconciler) applyOne(ctx context.Context, d Descriptor, rows []SourceRow) (map[int64]struct{}, error) {
	parents := make(map[int64]struct{})
	seen := make(map[int64]struct{})
	for _, row := range rows {
		if row.JoinKey == 0 {
			continue
		}
		if _, done := seen[row.JoinKey]; done {
			continue
		}
		seen[row.JoinKey] = struct{}{}

		line, err := r.store.TargetLineForUpdate(ctx, d, row.JoinKey)
		if err != nil {
			return nil, err
		}
		total, err := r.store.SumSiblings(ctx, d, row.JoinKey)
		if err != nil {
			return nil, err
		}
		total = shared.Round(total, r.precision)

		if d.Overflow != OverflowNone && total > line.RefValue+shared.RoundingEpsilon(r.precision) {
			return nil, fmt.Errorf("%w: row %d: %s %s total %.2f exceeds %s %.2f",
				ErrOverflow, row.RowNo, d.Overflow, d.TargetField, total, d.TargetRefField, line.RefValue)
		}
		if err := r.store.SetTargetValue(ctx, d, line.ID, total); err != nil {
			return nil, err
		}
		parents[line.ParentID] = struct{}{}
	}
	return parents, nil
}

// rollupParent recomputes percent complete as the capped line aggregates over
// the ordered reference values, and derives the status keyword from it.
func (r *Reconciler) rollupParent(ctx context.Context, d Descriptor, parentID int64) error {
	lines, err := r.store.ParentLineTotals(ctx, d, parentID)
	if err != nil {
		return err
	}
	var ref, done float64
	for _, line := range lines {
		ref += line.RefValue
		done += min(line.TargetValue, line.RefValue)
	}
	percent := 0.0
	if ref > 0 {
		percent = shared.Round(done/ref*100, 2)
	}
	return r.store.SetParentPercent(ctx, d, parentID, percent, StatusFor(d.Keyword, percent))
}

// StatusFor maps a completion percentage to the conventional status string.
func StatusFor(keyword Keyword, percent float64) string {
	switch {
	case percent >= 100:
		return "Fully " + string(keyword)
	case percent > 0:
		return "Partly " + string(keyword)
	default:
		return "Not " + string(keyword)
	}
}
