package models

import (
	"time"

	"gorm.io/datatypes"
)

type CustomerNotificationKind string

const (
	CustomerNotificationKindInvoiceCreated CustomerNotificationKind = "invoice_created"
	CustomerNotificationKindInvoicePaid    CustomerNotificationKind = "invoice_paid"
)

// CustomerNotification is an in-app message for the storefront customer.
type CustomerNotification struct {
	ID         string                   `gorm:"column:id;primary_key;type:uuid" json:"id"`
	CustomerID string                   `gorm:"column:customer_id;type:varchar(64);not null;index" json:"customer_id"`
	Kind       CustomerNotificationKind `gorm:"column:kind;type:varchar(64);not null" json:"kind"`
	Message    string                   `gorm:"column:message;type:text" json:"message"`
	Data       datatypes.JSON           `gorm:"column:data;type:jsonb" json:"data"`
	ReadAt     *time.Time               `gorm:"column:read_at" json:"read_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CustomerNotification) TableName() string { return "customer_notification" }
