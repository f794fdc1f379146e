package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avery-hart/librarysysbackend/database"
	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
)

// setupTestDB opens an isolated in-memory database and migrates the full
// schema. Names must be unique per test so the shared-cache databases of
// parallel tests cannot collide.
func setupTestDB(t *testing.T, name string) *gorm.DB {
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
	return db
}

func createTestUser(t *testing.T, repo UserRepository, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:    email,
		IsActive: true,
		Role:     permissions.RoleMember,
	}
	require.NoError(t, user.SetPassword("changeme123"))
	require.NoError(t, repo.Create(user))
	return user
}

func createTestBook(t *testing.T, repo BookRepository, isbn, title, author string) *models.Book {
	t.Helper()
	book := &models.Book{ISBN: isbn, Title: title, Author: author, IsAvailable: true}
	require.NoError(t, repo.Create(book))
	return book
}
