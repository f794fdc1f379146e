package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
)

func bookRouter(env *testEnv) http.Handler {
	h := &BookHandler{BookRepo: env.bookRepo, Cfg: env.cfg}
	r := chi.NewRouter()
	r.Post("/books", h.CreateBook)
	r.Get("/books", h.ListBooks)
	r.Get("/books/{book_id}", h.GetBook)
	r.Patch("/books/{book_id}", h.UpdateBook)
	r.Delete("/books/{book_id}", h.DeleteBook)
	return r
}

func TestCreateBook(t *testing.T) {
	env := newTestEnv(t, "bookh_create")
	router := bookRouter(env)

	t.Run("valid", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/books", BookCreatePayload{
			ISBN:   "978-0-451-52493-5",
			Title:  "  1984 ",
			Author: "George Orwell",
		}, nil)
		require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())

		var book models.Book
		decodeResponse(t, rr, &book)
		assert.NotEmpty(t, book.ID)
		// the punctuated form is kept; title and author are trimmed
		assert.Equal(t, "978-0-451-52493-5", book.ISBN)
		assert.Equal(t, "1984", book.Title)
		assert.True(t, book.IsAvailable)
	})

	t.Run("isbn conflict", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/books", BookCreatePayload{
			ISBN:   "978-0-451-52493-5",
			Title:  "Animal Farm",
			Author: "George Orwell",
		}, nil)
		detail := assertAPIError(t, rr, http.StatusConflict, ErrCodeConflict)
		assert.Contains(t, detail.Detail, "already exists with title '1984'")
	})

	t.Run("same isbn same metadata adds a copy", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/books", BookCreatePayload{
			ISBN:   "978-0-451-52493-5",
			Title:  "1984",
			Author: "George Orwell",
		}, nil)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("invalid isbn", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/books", BookCreatePayload{
			ISBN:   "12345",
			Title:  "Short ISBN",
			Author: "Nobody",
		}, nil)
		detail := assertAPIError(t, rr, http.StatusUnprocessableEntity, ErrCodeValidationFailed)
		assert.Equal(t, "ISBN must be 10 or 13 digits (hyphens allowed)", detail.Detail)
	})

	t.Run("blank title", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/books", BookCreatePayload{
			ISBN:   "9780451524935",
			Title:  "   ",
			Author: "George Orwell",
		}, nil)
		detail := assertAPIError(t, rr, http.StatusUnprocessableEntity, ErrCodeValidationFailed)
		assert.Equal(t, "Field cannot be empty or whitespace only", detail.Detail)
	})
}

func TestGetBook(t *testing.T) {
	env := newTestEnv(t, "bookh_get")
	router := bookRouter(env)
	book := env.newBook(t, "9780547928227", "The Hobbit", "J.R.R. Tolkien")

	rr := doRequest(t, router, http.MethodGet, "/books/"+book.ID, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Book
	decodeResponse(t, rr, &got)
	assert.Equal(t, book.ID, got.ID)

	rr = doRequest(t, router, http.MethodGet, "/books/not-a-uuid", nil, nil)
	detailBad := assertAPIError(t, rr, http.StatusBadRequest, ErrCodeBadRequest)
	assert.Equal(t, "Invalid book ID format", detailBad.Detail)

	rr = doRequest(t, router, http.MethodGet, "/books/7b0d2c8e-27be-4f83-b3a1-5e0db51f8b6b", nil, nil)
	detail := assertAPIError(t, rr, http.StatusNotFound, ErrCodeNotFound)
	assert.Equal(t, "Book not found", detail.Detail)
}

func TestListBooks(t *testing.T) {
	env := newTestEnv(t, "bookh_list")
	router := bookRouter(env)

	env.newBook(t, "9780451524935", "1984", "George Orwell")
	env.newBook(t, "9780452284241", "Animal Farm", "George Orwell")
	austen := env.newBook(t, "9780141439518", "Pride and Prejudice", "Jane Austen")

	austen.IsAvailable = false
	require.NoError(t, env.bookRepo.Update(austen))

	t.Run("default listing", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/books", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Data  []models.Book `json:"data"`
			Count int64         `json:"count"`
		}
		decodeResponse(t, rr, &resp)
		assert.Equal(t, int64(3), resp.Count)
		require.Len(t, resp.Data, 3)
		// default ordering is title ascending
		assert.Equal(t, "1984", resp.Data[0].Title)
	})

	t.Run("search with pagination", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/books?search=orwell&limit=1&skip=1", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Data  []models.Book `json:"data"`
			Count int64         `json:"count"`
		}
		decodeResponse(t, rr, &resp)
		assert.Equal(t, int64(2), resp.Count)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "Animal Farm", resp.Data[0].Title)
	})

	t.Run("available only", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/books?available_only=true", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Data  []models.Book `json:"data"`
			Count int64         `json:"count"`
		}
		decodeResponse(t, rr, &resp)
		assert.Equal(t, int64(2), resp.Count)
	})

	t.Run("non-integer limit", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/books?limit=lots", nil, nil)
		detail := assertAPIError(t, rr, http.StatusBadRequest, ErrCodeBadRequest)
		assert.Equal(t, "limit must be an integer", detail.Detail)
	})

	t.Run("bad boolean", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/books?available_only=maybe", nil, nil)
		assertAPIError(t, rr, http.StatusBadRequest, ErrCodeBadRequest)
	})
}

func TestUpdateBook(t *testing.T) {
	env := newTestEnv(t, "bookh_update")
	router := bookRouter(env)
	book := env.newBook(t, "9780547928227", "The Hobbit", "J.R.R. Tolkien")

	t.Run("partial update", func(t *testing.T) {
		title := "The Hobbit, or There and Back Again"
		rr := doRequest(t, router, http.MethodPatch, "/books/"+book.ID, BookUpdatePayload{Title: &title}, nil)
		require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())

		var got models.Book
		decodeResponse(t, rr, &got)
		assert.Equal(t, title, got.Title)
		// untouched fields survive
		assert.Equal(t, "9780547928227", got.ISBN)
		assert.Equal(t, "J.R.R. Tolkien", got.Author)
	})

	t.Run("invalid field rejected", func(t *testing.T) {
		bad := "not-an-isbn"
		rr := doRequest(t, router, http.MethodPatch, "/books/"+book.ID, BookUpdatePayload{ISBN: &bad}, nil)
		assertAPIError(t, rr, http.StatusUnprocessableEntity, ErrCodeValidationFailed)
	})

	t.Run("missing book", func(t *testing.T) {
		title := "Ghost"
		rr := doRequest(t, router, http.MethodPatch, "/books/7b0d2c8e-27be-4f83-b3a1-5e0db51f8b6b", BookUpdatePayload{Title: &title}, nil)
		assertAPIError(t, rr, http.StatusNotFound, ErrCodeNotFound)
	})
}

func TestDeleteBook(t *testing.T) {
	env := newTestEnv(t, "bookh_delete")
	router := bookRouter(env)

	book := env.newBook(t, "9780451524935", "1984", "George Orwell")
	borrower := env.newUser(t, "reader@example.com", permissions.RoleMember, false)

	_, err := env.borrowRepo.Borrow(book.ID, borrower.ID)
	require.NoError(t, err)

	rr := doRequest(t, router, http.MethodDelete, "/books/"+book.ID, nil, nil)
	detail := assertAPIError(t, rr, http.StatusConflict, ErrCodeConflict)
	assert.Equal(t, "Cannot delete a book that is currently borrowed", detail.Detail)

	spare := env.newBook(t, "9780452284241", "Animal Farm", "George Orwell")
	rr = doRequest(t, router, http.MethodDelete, "/books/"+spare.ID, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var msg MessageResponse
	decodeResponse(t, rr, &msg)
	assert.Equal(t, "Book deleted successfully", msg.Message)

	rr = doRequest(t, router, http.MethodDelete, "/books/"+spare.ID, nil, nil)
	assertAPIError(t, rr, http.StatusNotFound, ErrCodeNotFound)
}
