package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stitchlab/atelier/pkg/types"
)

// Order is the subset of the shop order relevant to invoicing and payment.
type Order struct {
	ID          string          `gorm:"column:id;primary_key;type:uuid" json:"id"`
	OrderNumber string          `gorm:"column:order_number;type:varchar(32);not null;uniqueIndex" json:"order_number"`
	CustomerID  string          `gorm:"column:customer_id;type:varchar(64);not null;index" json:"customer_id"`
	Title       string          `gorm:"column:title;type:varchar(255)" json:"title"`
	OrderType   types.OrderType `gorm:"column:order_type;type:varchar(32);not null;default:'custom'" json:"order_type"`
	// TemplateID references the stock design this order was placed from;
	// nil for fully custom orders.
	TemplateID    *string                  `gorm:"column:template_id;type:uuid" json:"template_id"`
	InvoiceID     *string                  `gorm:"column:invoice_id;type:uuid;index" json:"invoice_id"`
	PaymentStatus types.OrderPaymentStatus `gorm:"column:payment_status;type:varchar(32);not null;default:''" json:"payment_status"`
	FinalPrice    decimal.Decimal          `gorm:"column:final_price;type:numeric(12,2);not null" json:"final_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// DisplayName is what shows up as the checkout line item.
func (o *Order) DisplayName() string {
	if o.Title != "" {
		return o.Title
	}
	return o.OrderNumber
}
