// Package listing derives the visible page of users from the loaded
// collection and a session's query state. Everything here is pure and never
// fails: out-of-range input produces empty results.
package listing

import (
	"strings"

	"github.com/lllypuk/userdir/internal/domain/user"
)

// Pagination defaults.
const (
	DefaultPageSize        = 6
	DefaultMaxVisiblePages = 5
)

// Filter keeps users whose name contains term, ignoring case. A blank term
// returns users itself.
func Filter(users []user.User, term string) []user.User {
	if strings.TrimSpace(term) == "" {
		return users
	}

	needle := strings.ToLower(term)
	matched := make([]user.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name()), needle) {
			matched = append(matched, u)
		}
	}
	return matched
}

// Paginate returns the 1-based page of size pageSize, clipped to bounds.
func Paginate(users []user.User, page, pageSize int) []user.User {
	if page < 1 || pageSize < 1 {
		return []user.User{}
	}

	start := (page - 1) * pageSize
	if start >= len(users) {
		return []user.User{}
	}
	end := min(start+pageSize, len(users))

	return users[start:end]
}

// TotalPages returns ceil(count/pageSize), or 0 for an empty set.
func TotalPages(count, pageSize int) int {
	if count <= 0 || pageSize < 1 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// PageWindow is the run of page numbers shown by the pagination control.
type PageWindow struct {
	Pages         []int
	EllipsisStart bool
	EllipsisEnd   bool
}

// PageRange returns at most maxVisible page numbers centred on current and
// shifted to stay within [1, total].
func PageRange(current, total, maxVisible int) PageWindow {
	if total <= 0 {
		return PageWindow{}
	}
	if maxVisible < 1 {
		maxVisible = DefaultMaxVisiblePages
	}

	start, end := 1, total
	if total > maxVisible {
		half := maxVisible / 2
		start = max(current-half, 1)
		end = min(start+maxVisible-1, total)
		if end-start+1 < maxVisible {
			start = max(end-maxVisible+1, 1)
		}
	}

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}

	return PageWindow{
		Pages:         pages,
		EllipsisStart: start > 1,
		EllipsisEnd:   end < total,
	}
}
