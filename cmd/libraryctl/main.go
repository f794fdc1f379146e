package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/avery-hart/librarysysbackend/config"
	"github.com/avery-hart/librarysysbackend/database"
	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
	"github.com/avery-hart/librarysysbackend/repository"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "libraryctl",
		Short:        "Operational tooling for the library backend",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newCreateSuperuserCmd())
	rootCmd.AddCommand(newSeedBooksCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDatabase loads the environment the same way the server does and hands
// back a migrated database connection.
func openDatabase() (config.Config, *gorm.DB, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return cfg, gormDB, nil
}

func newCreateSuperuserCmd() *cobra.Command {
	var email, password, fullName string

	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create a superuser account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if !strings.Contains(email, "@") {
				return fmt.Errorf("invalid email address: %s", email)
			}
			if len(password) < 8 || len(password) > 40 {
				return errors.New("password must be between 8 and 40 characters")
			}

			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			userRepo := repository.NewGormUserRepository(db)
			if _, err := userRepo.GetByEmail(email); err == nil {
				return fmt.Errorf("user with email %s already exists", email)
			} else if !errors.Is(err, repository.ErrUserNotFound) {
				return err
			}

			user := &models.User{
				Email:       email,
				IsActive:    true,
				IsSuperuser: true,
				Role:        permissions.RoleLibrarian,
			}
			if fullName != "" {
				user.FullName = &fullName
			}
			if err := user.SetPassword(password); err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			if err := userRepo.Create(user); err != nil {
				return fmt.Errorf("failed to create superuser: %w", err)
			}

			fmt.Printf("Created superuser %s (id %s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address for the account")
	cmd.Flags().StringVar(&password, "password", "", "password (8-40 characters)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "optional display name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

type seedBook struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// starterBooks is the built-in seed set. Repeated ISBNs register additional
// physical copies of the same title.
var starterBooks = []seedBook{
	{"9780141439518", "Pride and Prejudice", "Jane Austen"},
	{"9780141439518", "Pride and Prejudice", "Jane Austen"},
	{"9780451524935", "1984", "George Orwell"},
	{"9780452284241", "Animal Farm", "George Orwell"},
	{"9780060850524", "Brave New World", "Aldous Huxley"},
	{"9780743273565", "The Great Gatsby", "F. Scott Fitzgerald"},
	{"9780547928227", "The Hobbit", "J.R.R. Tolkien"},
	{"9780547928227", "The Hobbit", "J.R.R. Tolkien"},
	{"9780062073488", "Murder on the Orient Express", "Agatha Christie"},
	{"9780140449136", "Crime and Punishment", "Fyodor Dostoevsky"},
}

func newSeedBooksCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-books",
		Short: "Register a starter set of books",
		Long:  "Registers books through the same ISBN consistency checks as the API. Each entry is one physical copy; repeat an ISBN to add more copies.",
		RunE: func(cmd *cobra.Command, args []string) error {
			books := starterBooks
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read seed file: %w", err)
				}
				books = nil
				if err := json.Unmarshal(data, &books); err != nil {
					return fmt.Errorf("failed to parse seed file: %w", err)
				}
			}

			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			bookRepo := repository.NewGormBookRepository(db)
			successCount := 0
			errorCount := 0
			for _, entry := range books {
				book := &models.Book{
					ISBN:        entry.ISBN,
					Title:       entry.Title,
					Author:      entry.Author,
					IsAvailable: true,
				}
				fmt.Printf("Registering: %s by %s... ", entry.Title, entry.Author)
				if err := bookRepo.Create(book); err != nil {
					fmt.Printf("ERROR - %v\n", err)
					errorCount++
					continue
				}
				fmt.Printf("SUCCESS (id %s)\n", book.ID)
				successCount++
			}

			fmt.Printf("\nSeed complete: %d registered, %d errors\n", successCount, errorCount)
			if errorCount > 0 {
				return fmt.Errorf("%d books failed to register", errorCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file with books to register")
	return cmd
}
