package development

import (
	"time"

	"gorm.io/datatypes"
)

// StoredRecord is the row shape shared by the remote and device-local
// stores. Payload holds the dual-spelled JSON document; the indexed columns
// are copies of payload fields used for scoped listing.
type StoredRecord struct {
	Kind      string         `gorm:"column:kind;size:32;primaryKey" json:"kind"`
	ID        string         `gorm:"column:id;size:64;primaryKey" json:"id"`
	SubjectID string         `gorm:"column:subject_id;size:128;index:idx_development_record_owner" json:"subject_id"`
	UserID    string         `gorm:"column:user_id;size:64;index:idx_development_record_owner" json:"user_id"`
	Status    string         `gorm:"column:status;size:32;index" json:"status"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (StoredRecord) TableName() string { return "development_record" }
