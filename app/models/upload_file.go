package models

import "time"

// UploadFile records an object uploaded to the object store, e.g. a payment proof.
type UploadFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	ObjectKey    string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	OriginalName string    `gorm:"type:varchar(255)" json:"name"`
	MimeType     string    `gorm:"type:varchar(100)" json:"mime"`
	Size         int64     `gorm:"not null" json:"size"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
