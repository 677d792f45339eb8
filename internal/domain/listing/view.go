package listing

import (
	"time"

	"github.com/lllypuk/userdir/internal/domain/user"
)

// Snapshot is the loaded collection together with its load state.
type Snapshot struct {
	Users   []user.User
	Loading bool
	Err     error
	Version uint64

	// LoadedAt is the time of the last successful load.
	LoadedAt time.Time
}

// Options controls page sizing for BuildView.
type Options struct {
	PageSize        int
	MaxVisiblePages int
}

// DefaultOptions returns the standard page size and window.
func DefaultOptions() Options {
	return Options{
		PageSize:        DefaultPageSize,
		MaxVisiblePages: DefaultMaxVisiblePages,
	}
}

// View is everything the presentation layer needs to render one page.
type View struct {
	Items       []user.User
	Loading     bool
	Error       string
	SearchTerm  string
	CurrentPage int
	TotalPages  int

	TotalCount    int
	FilteredCount int

	HasNextPage bool
	HasPrevPage bool

	// Window is the run of page links around CurrentPage.
	Window PageWindow

	// ShowPagination is false when there is at most one page.
	ShowPagination bool

	// EmptyResult marks a successful load with no matches, as opposed to a
	// failed load.
	EmptyResult bool
}

// Failed reports whether the last load failed.
func (v View) Failed() bool { return v.Error != "" }

// BuildView runs the filter and paginate steps for one session.
func BuildView(snap Snapshot, state *QueryState, opts Options) View {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxVisiblePages < 1 {
		opts.MaxVisiblePages = DefaultMaxVisiblePages
	}

	view := View{
		Items:       []user.User{},
		Loading:     snap.Loading,
		SearchTerm:  state.SearchTerm(),
		CurrentPage: state.CurrentPage(),
	}

	if snap.Err != nil {
		view.Error = snap.Err.Error()
		return view
	}

	filtered := Filter(snap.Users, state.SearchTerm())

	view.TotalCount = len(snap.Users)
	view.FilteredCount = len(filtered)
	view.TotalPages = TotalPages(len(filtered), opts.PageSize)
	view.Items = Paginate(filtered, state.CurrentPage(), opts.PageSize)
	view.HasNextPage = view.CurrentPage < view.TotalPages
	view.HasPrevPage = view.CurrentPage > 1
	view.Window = PageRange(view.CurrentPage, view.TotalPages, opts.MaxVisiblePages)
	view.ShowPagination = view.TotalPages > 1
	view.EmptyResult = !snap.Loading && len(filtered) == 0

	return view
}
