package listing

// QueryState is the search term and page a session is looking at.
// The zero value is not ready for use; call NewQueryState.
type QueryState struct {
	searchTerm  string
	currentPage int
}

// NewQueryState returns the initial state: no term, page 1.
func NewQueryState() *QueryState {
	return &QueryState{currentPage: 1}
}

// SearchTerm returns the current term.
func (q *QueryState) SearchTerm() string { return q.searchTerm }

// CurrentPage returns the current 1-based page.
func (q *QueryState) CurrentPage() int { return q.currentPage }

// SetSearchTerm stores term and moves back to the first page.
func (q *QueryState) SetSearchTerm(term string) {
	q.searchTerm = term
	q.currentPage = 1
}

// SetPage moves to page if it lies in [1, totalPages] and reports whether
// the state changed. Anything else is ignored.
func (q *QueryState) SetPage(page, totalPages int) bool {
	if page < 1 || page > totalPages {
		return false
	}
	q.currentPage = page
	return true
}

// Reset clears the term and returns to page 1.
func (q *QueryState) Reset() {
	q.searchTerm = ""
	q.currentPage = 1
}
