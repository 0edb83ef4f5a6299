package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/stitchlab/atelier/pkg/types"
)

// Invoice aggregates one or more orders into a single payable total with a
// generated checkout link. TotalAmount is frozen at generation time and never
// recomputed.
type Invoice struct {
	ID          string                      `gorm:"column:id;primary_key;type:uuid" json:"id"`
	CustomerID  string                      `gorm:"column:customer_id;type:varchar(64);not null;index" json:"customer_id"`
	OrderIDs    datatypes.JSONSlice[string] `gorm:"column:order_ids;type:jsonb;not null" json:"order_ids"`
	TotalAmount decimal.Decimal             `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	Status      types.InvoiceStatus         `gorm:"column:status;type:varchar(32);not null;default:'pending'" json:"status"`
	// ProviderReference is the gateway's sale reference number, set when the
	// payment notification arrives.
	ProviderReference *string `gorm:"column:provider_reference;type:varchar(128);uniqueIndex" json:"provider_reference"`
	ProviderOrderID   *string `gorm:"column:provider_order_id;type:varchar(128)" json:"provider_order_id"`
	PaymentMethod     *string `gorm:"column:payment_method;type:varchar(64)" json:"payment_method"`
	PaymentLink       string  `gorm:"column:payment_link;type:text" json:"payment_link"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoice" }

func (inv *Invoice) IsPaid() bool {
	return inv != nil && inv.Status == types.InvoiceStatusPaid
}
