package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avery-hart/librarysysbackend/config"
	"github.com/avery-hart/librarysysbackend/repository"
	"github.com/avery-hart/librarysysbackend/services"
)

type BorrowHandler struct {
	Service *services.BorrowService
	Cfg     config.Config
}

func NewBorrowHandler(service *services.BorrowService, cfg config.Config) *BorrowHandler {
	return &BorrowHandler{Service: service, Cfg: cfg}
}

type BorrowCreatePayload struct {
	BookID string `json:"book_id"`
}

// BorrowBook checks a book out to the calling user; the caller always
// becomes the borrower.
func (h *BorrowHandler) BorrowBook(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}

	var payload BorrowCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}
	if _, err := uuid.Parse(payload.BookID); err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, "book_id must be a valid UUID")
		return
	}

	record, err := h.Service.Borrow(payload.BookID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookNotFound):
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("Book with id %s not found", payload.BookID))
		case errors.Is(err, repository.ErrBookNotAvailable):
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "Book is not available for borrowing")
		default:
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to borrow book")
		}
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// ReturnBook closes an open borrow record. Only the original borrower may
// return, no matter what permissions the caller holds.
func (h *BorrowHandler) ReturnBook(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}

	borrowID := chi.URLParam(r, "borrow_id")
	if _, err := uuid.Parse(borrowID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid borrow record ID format")
		return
	}

	record, err := h.Service.Return(borrowID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBorrowRecordNotFound):
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("Borrow record with id %s not found", borrowID))
		case errors.Is(err, repository.ErrBookAlreadyReturned):
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "This book has already been returned")
		case errors.Is(err, repository.ErrNotBorrower):
			WriteAPIError(w, http.StatusForbidden, ErrCodeForbidden, "You can only return books that you borrowed")
		default:
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to return book")
		}
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ListMyBorrows lists the calling user's borrow records, most recent first.
func (h *BorrowHandler) ListMyBorrows(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}

	opts, err := h.parseBorrowListOptions(r, false)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	records, count, err := h.Service.ListForBorrower(user.ID, opts)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to list borrow records")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Data: records, Count: count})
}

// ListAllBorrows lists every borrow record; the borrower_id filter is only
// meaningful here.
func (h *BorrowHandler) ListAllBorrows(w http.ResponseWriter, r *http.Request) {
	opts, err := h.parseBorrowListOptions(r, true)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	records, count, err := h.Service.ListAll(opts)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to list borrow records")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Data: records, Count: count})
}

// GetBorrow fetches one record: borrowers see their own, anyone with the
// read-all permission sees any.
func (h *BorrowHandler) GetBorrow(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}

	borrowID := chi.URLParam(r, "borrow_id")
	if _, err := uuid.Parse(borrowID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid borrow record ID format")
		return
	}

	record, err := h.Service.GetRecord(borrowID)
	if err != nil {
		if errors.Is(err, repository.ErrBorrowRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "Borrow record not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve borrow record")
		}
		return
	}

	if !h.Service.CanViewRecord(user, record) {
		WriteAPIError(w, http.StatusForbidden, ErrCodeForbidden, "You can only view your own borrow records")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *BorrowHandler) parseBorrowListOptions(r *http.Request, allowBorrowerFilter bool) (repository.BorrowListOptions, error) {
	skip, limit, err := parsePagination(r, h.Cfg)
	if err != nil {
		return repository.BorrowListOptions{}, err
	}
	activeOnly, err := parseBoolParam(r, "active_only")
	if err != nil {
		return repository.BorrowListOptions{}, err
	}

	query := r.URL.Query()
	opts := repository.BorrowListOptions{
		ActiveOnly: activeOnly,
		Sort:       query.Get("sort"),
		Skip:       skip,
		Limit:      limit,
	}
	if opts.Sort == "" {
		opts.Sort = "-borrowed_at"
	}

	if bookID := query.Get("book_id"); bookID != "" {
		if _, err := uuid.Parse(bookID); err != nil {
			return repository.BorrowListOptions{}, errors.New("book_id must be a valid UUID")
		}
		opts.BookID = bookID
	}
	if allowBorrowerFilter {
		if borrowerID := query.Get("borrower_id"); borrowerID != "" {
			if _, err := uuid.Parse(borrowerID); err != nil {
				return repository.BorrowListOptions{}, errors.New("borrower_id must be a valid UUID")
			}
			opts.BorrowerID = borrowerID
		}
	}
	return opts, nil
}
