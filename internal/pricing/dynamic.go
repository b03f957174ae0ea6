package pricing

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/checkout-pricing/internal/adjustment"
	"github.com/noah-isme/checkout-pricing/internal/cart"
)

// StageDynamic names the dynamic pricing stage on produced records.
const StageDynamic = "dynamic-pricing"

// DynamicNamePrefix prefixes per-line dynamic discount record names. The full
// name embeds the product identity so repeated runs overwrite rather than
// duplicate.
const DynamicNamePrefix = "dynamic-pricing:"

// QuantityRule reduces a line's extended price once the quantity breakpoint
// is reached. Kind "percent" applies PercentBps of the extended price, any
// other kind applies the fixed Value.
type QuantityRule struct {
	MinQty     int
	Kind       string
	PercentBps int32
	Value      decimal.Decimal
}

// DynamicStage computes per-line-item discounts from quantity rules. It reads
// only the snapshot, never other stages' output.
type DynamicStage struct {
	Rules map[uuid.UUID][]QuantityRule
}

// NewDynamicStage builds the stage, ordering each product's rules by
// descending quantity breakpoint so the first match wins.
func NewDynamicStage(rules map[uuid.UUID][]QuantityRule) *DynamicStage {
	sorted := make(map[uuid.UUID][]QuantityRule, len(rules))
	for id, rs := range rules {
		list := make([]QuantityRule, len(rs))
		copy(list, rs)
		sort.SliceStable(list, func(i, j int) bool { return list[i].MinQty > list[j].MinQty })
		sorted[id] = list
	}
	return &DynamicStage{Rules: sorted}
}

// Apply produces at most one discount record per affected product. Lines
// without a matching rule yield no record.
func (s *DynamicStage) Apply(snapshot cart.Snapshot) []adjustment.Record {
	if s == nil || len(s.Rules) == 0 {
		return nil
	}
	var (
		order   []uuid.UUID
		amounts = make(map[uuid.UUID]decimal.Decimal)
	)
	for _, item := range snapshot.Items {
		reduction := s.reduce(item)
		if !reduction.IsPositive() {
			continue
		}
		if _, ok := amounts[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		amounts[item.ProductID] = amounts[item.ProductID].Add(reduction)
	}
	if len(order) == 0 {
		return nil
	}
	records := make([]adjustment.Record, 0, len(order))
	for _, id := range order {
		records = append(records, adjustment.Record{
			Name:    DynamicNamePrefix + id.String(),
			Kind:    adjustment.KindDiscount,
			Amount:  RoundCurrency(amounts[id]).Neg(),
			Taxable: true,
			Stage:   StageDynamic,
		})
	}
	return records
}

func (s *DynamicStage) reduce(item cart.LineItem) decimal.Decimal {
	extended := item.Extended()
	if !extended.IsPositive() {
		return decimal.Zero
	}
	for _, rule := range s.Rules[item.ProductID] {
		if item.Qty < rule.MinQty {
			continue
		}
		var reduction decimal.Decimal
		if strings.EqualFold(rule.Kind, "percent") {
			if rule.PercentBps <= 0 {
				return decimal.Zero
			}
			reduction = extended.Mul(decimal.New(int64(rule.PercentBps), -4))
		} else {
			reduction = rule.Value
		}
		if reduction.GreaterThan(extended) {
			reduction = extended
		}
		if reduction.IsNegative() {
			return decimal.Zero
		}
		return reduction
	}
	return decimal.Zero
}
