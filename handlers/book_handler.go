package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avery-hart/librarysysbackend/config"
	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/repository"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// ListResponse is the envelope for paginated listings. Count is the filtered
// total, not the page size.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Count int64       `json:"count"`
}

// MessageResponse is the body for operations that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

type BookHandler struct {
	BookRepo repository.BookRepository
	Cfg      config.Config
}

func NewBookHandler(bookRepo repository.BookRepository, cfg config.Config) *BookHandler {
	return &BookHandler{BookRepo: bookRepo, Cfg: cfg}
}

type BookCreatePayload struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

type BookUpdatePayload struct {
	ISBN        *string `json:"isbn,omitempty"`
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	IsAvailable *bool   `json:"is_available,omitempty"`
}

// CreateBook registers a new copy. Copies sharing an ISBN must carry the
// same title and author as the copies already on file.
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var payload BookCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}

	isbn, err := validateISBN(payload.ISBN)
	if err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}
	title, err := validateTitle(payload.Title)
	if err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}
	author, err := validateAuthor(payload.Author)
	if err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}

	book := &models.Book{
		ISBN:        isbn,
		Title:       title,
		Author:      author,
		IsAvailable: true,
	}
	if err := h.BookRepo.Create(book); err != nil {
		var conflict *repository.ISBNConflictError
		if errors.As(err, &conflict) {
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, conflict.Error())
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to create book")
		}
		return
	}

	writeJSON(w, http.StatusCreated, book)
}

// ListBooks supports search, exact-ISBN and availability filters, sorting,
// and pagination.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r, h.Cfg)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	availableOnly, err := parseBoolParam(r, "available_only")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	opts := repository.BookListOptions{
		Search:        query.Get("search"),
		ISBN:          query.Get("isbn"),
		AvailableOnly: availableOnly,
		Sort:          query.Get("sort"),
		Skip:          skip,
		Limit:         limit,
	}

	books, count, err := h.BookRepo.List(opts)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Data: books, Count: count})
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "book_id")
	if _, err := uuid.Parse(bookID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid book ID format")
		return
	}

	book, err := h.BookRepo.GetByID(bookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "Book not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve book")
		}
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// UpdateBook applies a partial update. Provided fields are validated with
// the same rules as creation; ISBN consistency is a creation-time rule and
// is not rechecked here.
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "book_id")
	if _, err := uuid.Parse(bookID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid book ID format")
		return
	}

	var payload BookUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}

	book, err := h.BookRepo.GetByID(bookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "Book not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve book")
		}
		return
	}

	if payload.ISBN != nil {
		isbn, err := validateISBN(*payload.ISBN)
		if err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
		book.ISBN = isbn
	}
	if payload.Title != nil {
		title, err := validateTitle(*payload.Title)
		if err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
		book.Title = title
	}
	if payload.Author != nil {
		author, err := validateAuthor(*payload.Author)
		if err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
		book.Author = author
	}
	if payload.IsAvailable != nil {
		book.IsAvailable = *payload.IsAvailable
	}

	if err := h.BookRepo.Update(book); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to update book")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteBook removes an available copy; borrowed copies must be returned
// first.
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "book_id")
	if _, err := uuid.Parse(bookID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid book ID format")
		return
	}

	if err := h.BookRepo.Delete(bookID); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookNotFound):
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "Book not found")
		case errors.Is(err, repository.ErrBookBorrowed):
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "Cannot delete a book that is currently borrowed")
		default:
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete book")
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Book deleted successfully"})
}
