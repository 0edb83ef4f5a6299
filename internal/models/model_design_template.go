package models

import "time"

// DesignTemplate is a pre-made embroidery design sold as a stock item. The
// stored file lives in the template bucket under FilePath.
type DesignTemplate struct {
	ID       string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Name     string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	FileName string `gorm:"column:file_name;type:varchar(255)" json:"file_name"`
	FilePath string `gorm:"column:file_path;type:text" json:"file_path"`
	FileSize int64  `gorm:"column:file_size;type:bigint" json:"file_size"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DesignTemplate) TableName() string { return "design_template" }

func (t *DesignTemplate) HasFile() bool {
	return t != nil && t.FilePath != "" && t.FileName != ""
}
