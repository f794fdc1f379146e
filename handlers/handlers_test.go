package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avery-hart/librarysysbackend/config"
	"github.com/avery-hart/librarysysbackend/database"
	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
	"github.com/avery-hart/librarysysbackend/repository"
	"github.com/avery-hart/librarysysbackend/services"
)

type testEnv struct {
	db         *gorm.DB
	cfg        config.Config
	userRepo   repository.UserRepository
	bookRepo   repository.BookRepository
	borrowRepo repository.BorrowRepository
	service    *services.BorrowService
}

func newTestEnv(t *testing.T, name string) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	userRepo := repository.NewGormUserRepository(db)
	bookRepo := repository.NewGormBookRepository(db)
	borrowRepo := repository.NewGormBorrowRepository(db)

	return &testEnv{
		db: db,
		cfg: config.Config{
			JWTSecret:        "test-signing-secret",
			JWTExpiryHours:   1,
			DefaultPageLimit: 100,
			MaxPageLimit:     1000,
		},
		userRepo:   userRepo,
		bookRepo:   bookRepo,
		borrowRepo: borrowRepo,
		service:    services.NewBorrowService(borrowRepo, bookRepo),
	}
}

func (e *testEnv) newUser(t *testing.T, email string, role permissions.Role, superuser bool) *models.User {
	t.Helper()
	user := &models.User{Email: email, IsActive: true, IsSuperuser: superuser, Role: role}
	require.NoError(t, user.SetPassword("changeme123"))
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *testEnv) newBook(t *testing.T, isbn, title, author string) *models.Book {
	t.Helper()
	book := &models.Book{ISBN: isbn, Title: title, Author: author, IsAvailable: true}
	require.NoError(t, e.bookRepo.Create(book))
	return book
}

// withUser plants a user in the request context the same way AuthMiddleware
// does, so handlers and permission gates can be exercised without a token.
func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = withUser(req, user)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dest))
}

func assertAPIError(t *testing.T, rr *httptest.ResponseRecorder, wantStatus int, wantCode string) APIErrorDetail {
	t.Helper()
	assert.Equal(t, wantStatus, rr.Code, "body: %s", rr.Body.String())

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, wantCode, resp.Errors[0].Code)
	return resp.Errors[0]
}
