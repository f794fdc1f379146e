package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BorrowRecord is one borrowing transaction: which copy, which borrower,
// when it was taken and when (if ever) it came back. A null ReturnedAt marks
// an active borrow. The partial unique index on BookID enforces "at most one
// active borrow per copy" at the storage level, so the invariant holds even
// if two requests race past the application-level availability check.
type BorrowRecord struct {
	ID         string     `json:"id" gorm:"type:uuid;primaryKey"`
	BookID     string     `json:"book_id" gorm:"type:uuid;not null;index:idx_borrow_records_active_book,unique,where:returned_at IS NULL"`
	BorrowerID string     `json:"borrower_id" gorm:"type:uuid;not null;index"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at"`
}

// BeforeCreate assigns a UUID primary key and stamps BorrowedAt when unset
func (br *BorrowRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if br.ID == "" {
		br.ID = uuid.New().String()
	}
	if br.BorrowedAt.IsZero() {
		br.BorrowedAt = time.Now().UTC()
	}
	return
}

// IsActive reports whether the borrow is still open (book not yet returned).
func (br *BorrowRecord) IsActive() bool {
	return br.ReturnedAt == nil
}
