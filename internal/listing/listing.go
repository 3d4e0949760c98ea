// Package listing slices full result lists into numbered pages.
//
// Pages are 1-based. For a list of n entries and page size s there are
// ceil(n/s) pages; page p holds entries [(p-1)*s, min(p*s, n)). Asking for
// a page outside [1, pages] is a not-found error, which includes every page
// of an empty list.
package listing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/bucketlist/internal/apperror"
)

// Page is one slice of a larger list.
type Page[T any] struct {
	Entries    []T
	Page       int
	PageSize   int
	TotalPages int
	Total      int
}

// TotalPages returns ceil(total/size).
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Paginate returns page number page of all.
func Paginate[T any](all []T, page, size int) (Page[T], error) {
	if size <= 0 {
		return Page[T]{}, apperror.ValidationFailed("limit", "page size must be positive")
	}

	pages := TotalPages(len(all), size)
	if page < 1 || page > pages {
		return Page[T]{}, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: fmt.Sprintf("page %d does not exist, there are %d pages", page, pages),
			Field:   "limit",
		}
	}

	start := (page - 1) * size
	end := min(start+size, len(all))

	return Page[T]{
		Entries:    all[start:end],
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
		Total:      len(all),
	}, nil
}

// ParsePage reads the raw ?limit= value. ok is false when the parameter is
// absent, meaning the caller should return the whole list unpaginated.
func ParsePage(raw string) (page int, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	page, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, apperror.ValidationFailed("limit", "limit must be a page number")
	}
	return page, true, nil
}
