package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/avery-hart/librarysysbackend/config"
	"github.com/avery-hart/librarysysbackend/models"
)

var (
	isbn10Pattern = regexp.MustCompile(`^\d{9}[\dX]$`)
	isbn13Pattern = regexp.MustCompile(`^\d{13}$`)
)

// validateISBN checks ISBN-10/ISBN-13 shape on the hyphen- and space-stripped
// form. The raw (trimmed) string is returned and stored; copies registered
// under differently punctuated ISBNs form distinct groups.
func validateISBN(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > 20 {
		return "", errors.New("ISBN must be at most 20 characters")
	}
	stripped := strings.ReplaceAll(strings.ReplaceAll(trimmed, "-", ""), " ", "")
	switch len(stripped) {
	case 10:
		if !isbn10Pattern.MatchString(stripped) {
			return "", errors.New("Invalid ISBN-10 format")
		}
	case 13:
		if !isbn13Pattern.MatchString(stripped) {
			return "", errors.New("Invalid ISBN-13 format")
		}
	default:
		return "", errors.New("ISBN must be 10 or 13 digits (hyphens allowed)")
	}
	return trimmed, nil
}

func validateTitle(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("Field cannot be empty or whitespace only")
	}
	if len(trimmed) > 500 {
		return "", errors.New("Title must be at most 500 characters")
	}
	return trimmed, nil
}

func validateAuthor(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("Field cannot be empty or whitespace only")
	}
	if len(trimmed) > 255 {
		return "", errors.New("Author must be at most 255 characters")
	}
	return trimmed, nil
}

// validateEmail returns the canonical (lowercased, trimmed) address.
func validateEmail(raw string) (string, error) {
	email := models.NormalizeEmail(raw)
	if email == "" || !strings.Contains(email, "@") {
		return "", errors.New("Invalid email address")
	}
	if len(email) > 255 {
		return "", errors.New("Email must be at most 255 characters")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("Password must be at least 8 characters")
	}
	if len(password) > 40 {
		return errors.New("Password must be at most 40 characters")
	}
	return nil
}

func validateFullName(name string) error {
	if len(name) > 255 {
		return errors.New("Full name must be at most 255 characters")
	}
	return nil
}

// parsePagination reads skip/limit query params. Out-of-range values clamp
// (negative skip to 0, limit to the configured maximum); only non-integer
// input is an error.
func parsePagination(r *http.Request, cfg config.Config) (skip, limit int, err error) {
	skip = 0
	if raw := r.URL.Query().Get("skip"); raw != "" {
		skip, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errors.New("skip must be an integer")
		}
		if skip < 0 {
			skip = 0
		}
	}

	limit = cfg.DefaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errors.New("limit must be an integer")
		}
	}
	if limit <= 0 {
		limit = cfg.DefaultPageLimit
	}
	if limit > cfg.MaxPageLimit {
		limit = cfg.MaxPageLimit
	}
	return skip, limit, nil
}

// parseBoolParam reads an optional boolean query param; absent means false.
func parseBoolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New(name + " must be a boolean")
	}
	return value, nil
}
