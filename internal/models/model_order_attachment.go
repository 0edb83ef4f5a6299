package models

import "time"

// OrderAttachment is a file visible on an order's attachment list.
// UploaderID is nil for files placed by the system (post-payment design
// delivery).
type OrderAttachment struct {
	ID         string  `gorm:"column:id;primary_key;type:uuid" json:"id"`
	OrderID    string  `gorm:"column:order_id;type:uuid;not null;index;uniqueIndex:unique_order_id_file_path,priority:1" json:"order_id"`
	FileName   string  `gorm:"column:file_name;type:varchar(255);not null" json:"file_name"`
	FilePath   string  `gorm:"column:file_path;type:text;not null;uniqueIndex:unique_order_id_file_path,priority:2" json:"file_path"`
	FileSize   int64   `gorm:"column:file_size;type:bigint" json:"file_size"`
	UploaderID *string `gorm:"column:uploader_id;type:varchar(64)" json:"uploader_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OrderAttachment) TableName() string { return "order_attachment" }
