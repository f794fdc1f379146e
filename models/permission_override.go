package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PermissionOverride grants or revokes a single permission for one user on
// top of their role defaults. Overrides are never edited in place: changing
// an effect means deleting the row and creating a new one. Permission and
// Effect are stored as raw strings so resolution can skip values that were
// valid when written but have since been retired.
type PermissionOverride struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     string    `json:"user_id" gorm:"type:uuid;index;not null"`
	Permission string    `json:"permission" gorm:"size:100;not null"`
	Effect     string    `json:"effect" gorm:"size:10;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none is set
func (po *PermissionOverride) BeforeCreate(tx *gorm.DB) (err error) {
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	return
}
