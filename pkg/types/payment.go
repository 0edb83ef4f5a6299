package types

import "github.com/shopspring/decimal"

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

type OrderPaymentStatus string

const (
	OrderPaymentStatusUnset          OrderPaymentStatus = ""
	OrderPaymentStatusPendingPayment OrderPaymentStatus = "pending_payment"
	OrderPaymentStatusPaid           OrderPaymentStatus = "paid"
)

type OrderType string

const (
	// OrderTypeStockDesign is an order fulfilled from a pre-existing design
	// template; paying for it delivers the template file as an attachment.
	OrderTypeStockDesign OrderType = "stock_design"
	OrderTypeCustom      OrderType = "custom"
)

// LineItem is one billable row on a checkout link.
type LineItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// AmountTolerance absorbs floating rounding between our stored totals and the
// amounts echoed back by the payment provider.
var AmountTolerance = decimal.NewFromFloat(0.01)
