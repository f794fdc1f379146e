package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avery-hart/librarysysbackend/database"
	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
	"github.com/avery-hart/librarysysbackend/repository"
)

func setupService(t *testing.T, name string) (*BorrowService, repository.UserRepository, repository.BookRepository) {
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
	return NewBorrowService(borrowRepo, bookRepo), userRepo, bookRepo
}

func seedUser(t *testing.T, repo repository.UserRepository, email string, role permissions.Role) *models.User {
	t.Helper()
	user := &models.User{Email: email, IsActive: true, Role: role}
	require.NoError(t, user.SetPassword("changeme123"))
	require.NoError(t, repo.Create(user))
	return user
}

func seedBook(t *testing.T, repo repository.BookRepository, isbn, title, author string) *models.Book {
	t.Helper()
	book := &models.Book{ISBN: isbn, Title: title, Author: author, IsAvailable: true}
	require.NoError(t, repo.Create(book))
	return book
}

func TestBorrowServiceLifecycle(t *testing.T) {
	svc, userRepo, bookRepo := setupService(t, "borrowsvc_lifecycle")

	member := seedUser(t, userRepo, "member@example.com", permissions.RoleMember)
	book := seedBook(t, bookRepo, "9780451524935", "1984", "George Orwell")

	record, err := svc.Borrow(book.ID, member.ID)
	require.NoError(t, err)
	assert.True(t, record.IsActive())

	_, err = svc.Borrow(book.ID, member.ID)
	assert.ErrorIs(t, err, repository.ErrBookNotAvailable)

	got, err := svc.GetRecord(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)

	returned, err := svc.Return(record.ID, member.ID)
	require.NoError(t, err)
	assert.NotNil(t, returned.ReturnedAt)
}

func TestBorrowServiceCanViewRecord(t *testing.T) {
	svc, userRepo, bookRepo := setupService(t, "borrowsvc_canview")

	borrower := seedUser(t, userRepo, "reader@example.com", permissions.RoleMember)
	otherMember := seedUser(t, userRepo, "other@example.com", permissions.RoleMember)
	librarian := seedUser(t, userRepo, "staff@example.com", permissions.RoleLibrarian)
	superuser := seedUser(t, userRepo, "root@example.com", permissions.RoleMember)
	superuser.IsSuperuser = true
	require.NoError(t, userRepo.Update(superuser))

	// a librarian with read_all denied cannot see other borrowers' records
	deniedLibrarian := seedUser(t, userRepo, "junior@example.com", permissions.RoleLibrarian)
	require.NoError(t, userRepo.CreateOverride(&models.PermissionOverride{
		UserID:     deniedLibrarian.ID,
		Permission: string(permissions.BorrowsReadAll),
		Effect:     string(permissions.EffectDeny),
	}))
	deniedLibrarian, err := userRepo.GetByID(deniedLibrarian.ID)
	require.NoError(t, err)

	book := seedBook(t, bookRepo, "9780547928227", "The Hobbit", "J.R.R. Tolkien")
	record, err := svc.Borrow(book.ID, borrower.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		user *models.User
		want bool
	}{
		{name: "borrower sees own record", user: borrower, want: true},
		{name: "unrelated member cannot see it", user: otherMember, want: false},
		{name: "librarian has read_all by default", user: librarian, want: true},
		{name: "superuser sees everything", user: superuser, want: true},
		{name: "deny override beats the role default", user: deniedLibrarian, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.CanViewRecord(tt.user, record))
		})
	}
}

func TestBorrowServiceListForBorrower(t *testing.T) {
	svc, userRepo, bookRepo := setupService(t, "borrowsvc_list")

	alice := seedUser(t, userRepo, "alice@example.com", permissions.RoleMember)
	bob := seedUser(t, userRepo, "bob@example.com", permissions.RoleMember)
	orwell := seedBook(t, bookRepo, "9780451524935", "1984", "George Orwell")
	hobbit := seedBook(t, bookRepo, "9780547928227", "The Hobbit", "J.R.R. Tolkien")

	_, err := svc.Borrow(orwell.ID, alice.ID)
	require.NoError(t, err)
	_, err = svc.Borrow(hobbit.ID, bob.ID)
	require.NoError(t, err)

	// the borrower pin overrides any caller-supplied filter
	records, total, err := svc.ListForBorrower(alice.ID, repository.BorrowListOptions{
		BorrowerID: bob.ID,
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, alice.ID, records[0].BorrowerID)

	all, total, err := svc.ListAll(repository.BorrowListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}
