package repository

import (
	"errors"
	"fmt"
)

// Domain errors returned by the repositories. Handlers and services match on
// these with errors.Is to pick status codes and response messages.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("a user with this email already exists")

	ErrOverrideNotFound  = errors.New("permission override not found")
	ErrDuplicateOverride = errors.New("permission override already exists")

	ErrBookNotFound     = errors.New("book not found")
	ErrBookNotAvailable = errors.New("book is not available for borrowing")
	ErrBookBorrowed     = errors.New("cannot delete a book that is currently borrowed")

	ErrBorrowRecordNotFound = errors.New("borrow record not found")
	ErrBookAlreadyReturned  = errors.New("this book has already been returned")
	ErrNotBorrower          = errors.New("only the borrower can return this book")
)

// ISBNConflictError reports an attempt to register a copy under an ISBN whose
// existing copies carry a different title or author. Field is "title" or
// "author". Matched with errors.As.
type ISBNConflictError struct {
	ISBN     string
	Field    string
	Existing string
	Proposed string
}

func (e *ISBNConflictError) Error() string {
	return fmt.Sprintf("ISBN %s already exists with %s '%s'. Cannot register with different %s '%s'.",
		e.ISBN, e.Field, e.Existing, e.Field, e.Proposed)
}
