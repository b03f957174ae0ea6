package adjustment

import "github.com/shopspring/decimal"

// Kind classifies the monetary direction of an adjustment.
type Kind string

const (
	// KindDiscount represents a reduction of the payable total.
	KindDiscount Kind = "discount"
	// KindSurcharge represents an addition to the payable total.
	KindSurcharge Kind = "surcharge"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	return k == KindDiscount || k == KindSurcharge
}

// Record is a named, signed monetary line applied to a cart. Amounts are
// negative for discounts and positive for surcharges. Name is unique within
// one ledger generation; a stage overwrites its own prior record by reusing
// the same name, never by appending a second one.
type Record struct {
	Name    string
	Kind    Kind
	Amount  decimal.Decimal
	Taxable bool
	Stage   string
}

// Equal reports whether two records carry the same name, kind and amount.
func (r Record) Equal(other Record) bool {
	return r.Name == other.Name && r.Kind == other.Kind && r.Amount.Equal(other.Amount)
}
