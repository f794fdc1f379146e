package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/avery-hart/librarysysbackend/database"
	"github.com/avery-hart/librarysysbackend/models"
)

// bookSortColumns maps API sort fields to book columns
var bookSortColumns = map[string]string{
	"title":      "title",
	"author":     "author",
	"created_at": "created_at",
}

type GormBookRepository struct {
	db *gorm.DB
}

func NewGormBookRepository(db *gorm.DB) BookRepository {
	return &GormBookRepository{db: db}
}

// Create registers a new copy. When another copy already carries the same
// ISBN, its title and author must match exactly; the check and the insert
// share one transaction so two concurrent creates cannot slip past it.
func (r *GormBookRepository) Create(book *models.Book) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Book
		err := tx.Where("isbn = ?", book.ISBN).First(&existing).Error
		if err == nil {
			if existing.Title != book.Title {
				return &ISBNConflictError{ISBN: book.ISBN, Field: "title", Existing: existing.Title, Proposed: book.Title}
			}
			if existing.Author != book.Author {
				return &ISBNConflictError{ISBN: book.ISBN, Field: "author", Existing: existing.Author, Proposed: book.Author}
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(book).Error
	})
}

func (r *GormBookRepository) GetByID(id string) (*models.Book, error) {
	var book models.Book
	err := r.db.First(&book, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

func (r *GormBookRepository) Update(book *models.Book) error {
	return r.db.Save(book).Error
}

// Delete removes a copy. Borrowed copies cannot be deleted; the availability
// check runs inside the transaction so a concurrent borrow cannot interleave.
func (r *GormBookRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.First(&book, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if !book.IsAvailable {
			return ErrBookBorrowed
		}
		return tx.Delete(&book).Error
	})
}

func (r *GormBookRepository) List(opts BookListOptions) ([]models.Book, int64, error) {
	var total int64
	if err := r.listQuery(opts).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort := database.ParseSort(opts.Sort, bookSortColumns, "title")

	books := []models.Book{}
	err := r.listQuery(opts).
		Order(sort.OrderClause()).
		Offset(opts.Skip).
		Limit(opts.Limit).
		Find(&books).Error
	return books, total, err
}

// listQuery builds a fresh filtered query; callers chain their own finisher
func (r *GormBookRepository) listQuery(opts BookListOptions) *gorm.DB {
	query := r.db.Model(&models.Book{})
	if opts.Search != "" {
		pattern := "%" + strings.ToLower(opts.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", pattern, pattern)
	}
	if opts.ISBN != "" {
		query = query.Where("isbn = ?", opts.ISBN)
	}
	if opts.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}
	return query
}
