// Package reconcile propagates child row aggregates from a transaction
// document up to the lines and headers of its ancestor documents. The
// propagation rules are data, not code: each Descriptor names the source
// field, the target line column, the reference column it is clamped against,
// and the percentage rolled up on the ancestor header.
package reconcile

import "errors"

// Keyword labels the aggregation for status strings ("Not Billed",
// "Partly Delivered", ...).
type Keyword string

const (
	KeywordBilled    Keyword = "Billed"
	KeywordDelivered Keyword = "Delivered"
	KeywordReturned  Keyword = "Returned"
)

// OverflowPolicy states which limit a descriptor enforces when the aggregate
// exceeds the reference value.
type OverflowPolicy string

const (
	// OverflowNone performs no clamping; used for bookkeeping columns such
	// as returned quantity.
	OverflowNone OverflowPolicy = ""
	// OverflowBilling rejects billing beyond the ordered amount.
	OverflowBilling OverflowPolicy = "billing"
	// OverflowDelivery rejects delivering beyond the ordered quantity.
	OverflowDelivery OverflowPolicy = "delivery"
)

// SourceExpr selects the invoice item column feeding the aggregate.
type SourceExpr string

const (
	SourceAmount      SourceExpr = "amount"
	SourceQty         SourceExpr = "qty"
	SourceNegatedQty  SourceExpr = "-qty"
)

// Descriptor is one declarative propagation rule.
type Descriptor struct {
	Keyword Keyword

	// Source side: which invoice item column is aggregated, and the item
	// field holding the join key to the target line.
	Source    SourceExpr
	JoinField string

	// Target line: table, the column receiving the aggregate, and the
	// reference column the aggregate is clamped against.
	TargetTable    string
	TargetField    string
	TargetRefField string

	// Ancestor header: table plus the percentage and status columns rolled
	// up from the lines. Empty PercentField skips the rollup.
	ParentTable  string
	PercentField string
	StatusField  string

	Overflow OverflowPolicy

	// SecondSourceTable optionally names another child table contributing
	// to the same aggregate (delivery note lines feed delivered quantity
	// alongside update-stock invoice lines).
	SecondSourceTable string
	SecondJoinField   string

	// Typed predicates on the contributing sibling invoices, replacing the
	// interpolated SQL conditions of older implementations.
	RequireUpdateStock bool
	RequireReturn      bool
}

// ErrOverflow is returned when a propagation would exceed the reference value
// of the target line.
var ErrOverflow = errors.New("reconcile: aggregate exceeds reference quantity")
