package services

import (
	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
	"github.com/avery-hart/librarysysbackend/repository"
)

// BorrowService provides high-level borrow lifecycle operations
type BorrowService struct {
	borrowRepo repository.BorrowRepository
	bookRepo   repository.BookRepository
}

// NewBorrowService creates a new borrow service
func NewBorrowService(borrowRepo repository.BorrowRepository, bookRepo repository.BookRepository) *BorrowService {
	return &BorrowService{
		borrowRepo: borrowRepo,
		bookRepo:   bookRepo,
	}
}

// Borrow checks out a book for the given borrower. All preconditions (book
// exists, copy available, no open record) are enforced atomically by the
// repository; the error identifies which one failed.
func (s *BorrowService) Borrow(bookID, borrowerID string) (*models.BorrowRecord, error) {
	return s.borrowRepo.Borrow(bookID, borrowerID)
}

// Return closes a borrow record on behalf of the given user. The record must
// be open and the user must be the original borrower.
func (s *BorrowService) Return(recordID, userID string) (*models.BorrowRecord, error) {
	return s.borrowRepo.Return(recordID, userID)
}

// GetRecord fetches a single borrow record by ID
func (s *BorrowService) GetRecord(id string) (*models.BorrowRecord, error) {
	return s.borrowRepo.GetByID(id)
}

// CanViewRecord reports whether a user may see a borrow record. Borrowers
// always see their own records; seeing anyone else's requires the
// borrows:read_all permission.
func (s *BorrowService) CanViewRecord(user *models.User, record *models.BorrowRecord) bool {
	if record.BorrowerID == user.ID {
		return true
	}
	return user.HasPermission(permissions.BorrowsReadAll)
}

// ListForBorrower lists borrow records belonging to a single borrower. The
// borrower filter always wins over whatever the options carry.
func (s *BorrowService) ListForBorrower(borrowerID string, opts repository.BorrowListOptions) ([]models.BorrowRecord, int64, error) {
	opts.BorrowerID = borrowerID
	return s.borrowRepo.List(opts)
}

// ListAll lists borrow records across all borrowers
func (s *BorrowService) ListAll(opts repository.BorrowListOptions) ([]models.BorrowRecord, int64, error) {
	return s.borrowRepo.List(opts)
}
