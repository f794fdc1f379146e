package database

import (
	"database/sql"
	"fmt"
	"log"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/facette/natsort"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// LibraryOverview aggregates headline counts for the reporting endpoints
type LibraryOverview struct {
	TotalBooks      int64                `json:"total_books"`
	AvailableBooks  int64                `json:"available_books"`
	TotalUsers      int64                `json:"total_users"`
	ActiveUsers     int64                `json:"active_users"`
	ActiveBorrows   int64                `json:"active_borrows"`
	ReturnedBorrows int64                `json:"returned_borrows"`
	MostBorrowed    []BorrowedTitleCount `json:"most_borrowed"`
}

// BorrowedTitleCount is one row of the most-borrowed report
type BorrowedTitleCount struct {
	ISBN          string `json:"isbn"`
	Title         string `json:"title"`
	TimesBorrowed int64  `json:"times_borrowed"`
}

// CatalogEntry summarizes all copies sharing one ISBN
type CatalogEntry struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Copies    int64  `json:"copies"`
	Available int64  `json:"available"`
}

// ReportStore runs read-only aggregate queries against the raw connection
// pool shared with GORM
type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) Overview() (*LibraryOverview, error) {
	overview := &LibraryOverview{}

	counts := []struct {
		dest    *int64
		builder sq.SelectBuilder
	}{
		{&overview.TotalBooks, psql.Select("COUNT(*)").From("books")},
		{&overview.AvailableBooks, psql.Select("COUNT(*)").From("books").Where(sq.Eq{"is_available": true})},
		{&overview.TotalUsers, psql.Select("COUNT(*)").From("users")},
		{&overview.ActiveUsers, psql.Select("COUNT(*)").From("users").Where(sq.Eq{"is_active": true})},
		{&overview.ActiveBorrows, psql.Select("COUNT(*)").From("borrow_records").Where(sq.Eq{"returned_at": nil})},
		{&overview.ReturnedBorrows, psql.Select("COUNT(*)").From("borrow_records").Where(sq.NotEq{"returned_at": nil})},
	}
	for _, c := range counts {
		if err := s.scalar(c.builder, c.dest); err != nil {
			return nil, err
		}
	}

	queryBuilder := psql.Select("b.isbn", "b.title", "COUNT(br.id) AS times_borrowed").
		From("borrow_records br").
		Join("books b ON b.id = br.book_id").
		GroupBy("b.isbn", "b.title").
		OrderBy("times_borrowed DESC", "b.title ASC").
		Limit(5)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for Overview top titles: %w", err)
	}

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Overview top titles query: %w", err)
	}
	defer rows.Close()

	overview.MostBorrowed = []BorrowedTitleCount{}
	for rows.Next() {
		var row BorrowedTitleCount
		if err := rows.Scan(&row.ISBN, &row.Title, &row.TimesBorrowed); err != nil {
			log.Printf("Error scanning most-borrowed row: %v", err)
			continue
		}
		overview.MostBorrowed = append(overview.MostBorrowed, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating most-borrowed rows: %w", err)
	}

	return overview, nil
}

// CatalogSummary collapses copies into one row per (isbn, title, author),
// naturally ordered by title so "Vol. 2" precedes "Vol. 10"
func (s *ReportStore) CatalogSummary() ([]CatalogEntry, error) {
	queryBuilder := psql.Select(
		"isbn", "title", "author",
		"COUNT(*) AS copies",
		"SUM(CASE WHEN is_available THEN 1 ELSE 0 END) AS available").
		From("books").
		GroupBy("isbn", "title", "author").
		OrderBy("title ASC", "author ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for CatalogSummary: %w", err)
	}

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute CatalogSummary query: %w", err)
	}
	defer rows.Close()

	entries := []CatalogEntry{}
	for rows.Next() {
		var e CatalogEntry
		if err := rows.Scan(&e.ISBN, &e.Title, &e.Author, &e.Copies, &e.Available); err != nil {
			log.Printf("Error scanning catalog summary row: %v", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return entries, fmt.Errorf("error iterating catalog summary rows: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return natsort.Compare(entries[i].Title, entries[j].Title)
	})
	return entries, nil
}

// scalar runs a single-value aggregate query
func (s *ReportStore) scalar(qb sq.SelectBuilder, dest *int64) error {
	sqlStr, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL for report scalar: %w", err)
	}
	if err := s.db.QueryRow(sqlStr, args...).Scan(dest); err != nil {
		return fmt.Errorf("failed to execute report scalar query: %w", err)
	}
	return nil
}
