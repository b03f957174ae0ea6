package events

// Topic constants for cart mutations that require a pricing recalculation.
const (
	TopicItemAdded            = "cart.item_added"
	TopicItemRemoved          = "cart.item_removed"
	TopicQtyChanged           = "cart.qty_changed"
	TopicPaymentMethodChanged = "cart.payment_method_changed"
)

// DefaultTopics returns the canonical list of cart-change topics.
func DefaultTopics() []string {
	return []string{
		TopicItemAdded,
		TopicItemRemoved,
		TopicQtyChanged,
		TopicPaymentMethodChanged,
	}
}
