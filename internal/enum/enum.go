package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusActive    = "active"
	OrderStatusDelivered = "delivered"
	OrderStatusCanceled  = "canceled"
)

// ── Bulk price revision directions ──

const (
	PriceDirectionIncrease = "increase"
	PriceDirectionDecrease = "decrease"
)

// ── Configurable labels (no DB constraint) ──

// Payment modes are free text at submission time; reporting
// lower-cases them before grouping.
const (
	PaymentModeCash = "cash"
	PaymentModeUPI  = "upi"
	PaymentModeCard = "card"
)

const SizeStandard = "Standard"
