package database

import "strings"

// List endpoints take a sort parameter of the form "field" for ascending or
// "-field" for descending, e.g. "title" or "-borrowed_at".

// SortOption is a parsed list-ordering parameter
type SortOption struct {
	Column     string
	Descending bool
}

// ParseSort resolves an API sort parameter against the sortable columns of a
// listing. The direction comes from the "-" prefix; a field that is not in
// sortable falls back to defaultColumn while keeping the requested direction.
func ParseSort(param string, sortable map[string]string, defaultColumn string) SortOption {
	descending := strings.HasPrefix(param, "-")
	field := strings.TrimLeft(param, "+-")

	column, ok := sortable[field]
	if !ok {
		column = defaultColumn
	}
	return SortOption{Column: column, Descending: descending}
}

// OrderClause renders the option as an ORDER BY fragment
func (s SortOption) OrderClause() string {
	if s.Descending {
		return s.Column + " DESC"
	}
	return s.Column + " ASC"
}
