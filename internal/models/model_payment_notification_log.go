package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentNotificationLogStatus string

const (
	PaymentNotificationLogStatusReceived     PaymentNotificationLogStatus = "received"
	PaymentNotificationLogStatusHandled      PaymentNotificationLogStatus = "handled"
	PaymentNotificationLogStatusHandleFailed PaymentNotificationLogStatus = "handle_failed"
)

// PaymentNotificationLog keeps every raw gateway callback for audit and
// replay debugging. Data holds the flattened parameter map as received.
type PaymentNotificationLog struct {
	ID                string                       `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ProviderReference string                       `gorm:"column:provider_reference;type:varchar(128);index" json:"provider_reference"`
	InvoiceID         *string                      `gorm:"column:invoice_id;type:uuid" json:"invoice_id"`
	TraceID           string                       `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	NotificationTime  time.Time                    `gorm:"column:notification_time" json:"notification_time"`
	Data              datatypes.JSON               `gorm:"column:data;type:jsonb" json:"data"`
	Result            *datatypes.JSON              `gorm:"column:result;type:jsonb" json:"result"`
	Status            PaymentNotificationLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentNotificationLog) TableName() string { return "payment_notification_log" }
