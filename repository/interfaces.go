package repository

import (
	"github.com/avery-hart/librarysysbackend/models"
)

// BookListOptions filters, sorts, and paginates book listings
type BookListOptions struct {
	Search        string // case-insensitive substring match on title or author
	ISBN          string // exact ISBN filter
	AvailableOnly bool
	Sort          string // "title", "author", "created_at", "-" prefix for descending
	Skip          int
	Limit         int
}

// BorrowListOptions filters, sorts, and paginates borrow record listings
type BorrowListOptions struct {
	BorrowerID string // restrict to a single borrower (own-records listings)
	BookID     string
	ActiveOnly bool
	Sort       string // "borrowed_at" or "returned_at", "-" prefix for descending
	Skip       int
	Limit      int
}

// UserRepository defines the methods for user and override data operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id string) error
	List(skip, limit int) ([]models.User, int64, error)

	// permission override management for a user
	CreateOverride(override *models.PermissionOverride) error
	GetOverrideByID(id string) (*models.PermissionOverride, error)
	ListOverrides(userID string) ([]models.PermissionOverride, error)
	DeleteOverride(id string) error
}

// BookRepository defines the methods for book data operations
type BookRepository interface {
	Create(book *models.Book) error
	GetByID(id string) (*models.Book, error)
	Update(book *models.Book) error
	Delete(id string) error
	List(opts BookListOptions) ([]models.Book, int64, error)
}

// BorrowRepository defines the methods for borrow record data operations.
// Borrow and Return run their precondition checks and mutations inside a
// single transaction.
type BorrowRepository interface {
	Borrow(bookID, borrowerID string) (*models.BorrowRecord, error)
	Return(recordID, returningUserID string) (*models.BorrowRecord, error)
	GetByID(id string) (*models.BorrowRecord, error)
	GetActiveByBookID(bookID string) (*models.BorrowRecord, error)
	List(opts BorrowListOptions) ([]models.BorrowRecord, int64, error)
}
