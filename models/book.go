package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book represents one physical copy in the library. Multiple copies of the
// same work share an ISBN, each with its own ID; all copies sharing an ISBN
// must carry identical title and author.
type Book struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	ISBN        string    `json:"isbn" gorm:"size:20;index;not null"` // not unique: multiple copies allowed
	Title       string    `json:"title" gorm:"size:500;not null"`
	Author      string    `json:"author" gorm:"size:255;not null"`
	IsAvailable bool      `json:"is_available" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none is set
func (b *Book) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}
