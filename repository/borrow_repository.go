package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/avery-hart/librarysysbackend/database"
	"github.com/avery-hart/librarysysbackend/models"
)

// borrowSortColumns maps API sort fields to borrow record columns
var borrowSortColumns = map[string]string{
	"borrowed_at": "borrowed_at",
	"returned_at": "returned_at",
}

type GormBorrowRepository struct {
	db *gorm.DB
}

func NewGormBorrowRepository(db *gorm.DB) BorrowRepository {
	return &GormBorrowRepository{db: db}
}

// Borrow moves a copy from Available to Borrowed: it creates the open borrow
// record and clears the availability flag in one transaction. Preconditions
// are checked inside the same transaction; the partial unique index on open
// records backstops any racer that slips past them.
func (r *GormBorrowRepository) Borrow(bookID, borrowerID string) (*models.BorrowRecord, error) {
	var record *models.BorrowRecord
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.First(&book, "id = ?", bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if !book.IsAvailable {
			return ErrBookNotAvailable
		}

		// the availability flag and the open record can diverge if a write
		// was lost; check both before committing
		var active models.BorrowRecord
		err := tx.Where("book_id = ? AND returned_at IS NULL", bookID).First(&active).Error
		if err == nil {
			return ErrBookNotAvailable
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		record = &models.BorrowRecord{BookID: bookID, BorrowerID: borrowerID}
		if err := tx.Create(record).Error; err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return ErrBookNotAvailable
			}
			return err
		}

		return tx.Model(&book).Update("is_available", false).Error
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Return closes a borrow record: it stamps returned_at and restores the
// book's availability flag atomically. Only the original borrower may
// return, regardless of what permissions the caller holds.
func (r *GormBorrowRepository) Return(recordID, returningUserID string) (*models.BorrowRecord, error) {
	var record *models.BorrowRecord
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var rec models.BorrowRecord
		if err := tx.First(&rec, "id = ?", recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBorrowRecordNotFound
			}
			return err
		}
		if rec.ReturnedAt != nil {
			return ErrBookAlreadyReturned
		}
		if rec.BorrowerID != returningUserID {
			return ErrNotBorrower
		}

		now := time.Now().UTC()
		if err := tx.Model(&rec).Update("returned_at", now).Error; err != nil {
			return err
		}
		rec.ReturnedAt = &now

		if err := tx.Model(&models.Book{}).
			Where("id = ?", rec.BookID).
			Update("is_available", true).Error; err != nil {
			return err
		}

		record = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *GormBorrowRepository) GetByID(id string) (*models.BorrowRecord, error) {
	var record models.BorrowRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBorrowRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetActiveByBookID returns the open borrow record for a book, if any
func (r *GormBorrowRepository) GetActiveByBookID(bookID string) (*models.BorrowRecord, error) {
	var record models.BorrowRecord
	err := r.db.Where("book_id = ? AND returned_at IS NULL", bookID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBorrowRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *GormBorrowRepository) List(opts BorrowListOptions) ([]models.BorrowRecord, int64, error) {
	var total int64
	if err := r.listQuery(opts).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort := database.ParseSort(opts.Sort, borrowSortColumns, "borrowed_at")

	records := []models.BorrowRecord{}
	err := r.listQuery(opts).
		Order(sort.OrderClause()).
		Offset(opts.Skip).
		Limit(opts.Limit).
		Find(&records).Error
	return records, total, err
}

// listQuery builds a fresh filtered query; callers chain their own finisher
func (r *GormBorrowRepository) listQuery(opts BorrowListOptions) *gorm.DB {
	query := r.db.Model(&models.BorrowRecord{})
	if opts.BorrowerID != "" {
		query = query.Where("borrower_id = ?", opts.BorrowerID)
	}
	if opts.BookID != "" {
		query = query.Where("book_id = ?", opts.BookID)
	}
	if opts.ActiveOnly {
		query = query.Where("returned_at IS NULL")
	}
	return query
}
