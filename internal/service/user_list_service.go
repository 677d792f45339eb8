package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lllypuk/userdir/internal/domain/errs"
	"github.com/lllypuk/userdir/internal/domain/listing"
	"github.com/lllypuk/userdir/internal/domain/user"
)

// UserListService exposes the list intents of one browser session.
type UserListService struct {
	directory *Directory
	sessions  *SessionStore
	opts      listing.Options
}

// NewUserListService creates a new user list service.
func NewUserListService(directory *Directory, sessions *SessionStore, opts listing.Options) *UserListService {
	return &UserListService{
		directory: directory,
		sessions:  sessions,
		opts:      opts,
	}
}

// View returns the current page for the session.
func (s *UserListService) View(sessionID string) listing.View {
	return s.apply(sessionID, nil)
}

// Search sets the term and returns to page 1.
func (s *UserListService) Search(sessionID, term string) listing.View {
	return s.apply(sessionID, func(q *listing.QueryState, _ listing.View) {
		q.SetSearchTerm(term)
	})
}

// ChangePage moves to page. Out-of-range pages leave the state unchanged.
func (s *UserListService) ChangePage(sessionID string, page int) listing.View {
	return s.apply(sessionID, func(q *listing.QueryState, current listing.View) {
		q.SetPage(page, current.TotalPages)
	})
}

// Reset clears the term and returns to page 1.
func (s *UserListService) Reset(sessionID string) listing.View {
	return s.apply(sessionID, func(q *listing.QueryState, _ listing.View) {
		q.Reset()
	})
}

// Reload re-fetches the collection and returns the resulting view. The load
// is detached from ctx cancellation so an aborted request does not wipe the
// directory; only a newer load can cancel it. A superseded reload is not an
// error: the newer load owns the result.
func (s *UserListService) Reload(ctx context.Context, sessionID string) (listing.View, error) {
	err := s.directory.Load(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, ErrLoadSuperseded) {
		return s.View(sessionID), err
	}
	return s.View(sessionID), nil
}

// SelectUser returns one user of the loaded collection.
func (s *UserListService) SelectUser(id int) (user.User, error) {
	if id <= 0 {
		return user.User{}, fmt.Errorf("%w: user id must be positive", errs.ErrInvalidInput)
	}
	return s.directory.User(id)
}

// Options returns the paging options used for views.
func (s *UserListService) Options() listing.Options {
	return s.opts
}

func (s *UserListService) apply(sessionID string, fn func(*listing.QueryState, listing.View)) listing.View {
	snap := s.directory.Snapshot()

	var view listing.View
	build := func(q *listing.QueryState) {
		if fn != nil {
			fn(q, listing.BuildView(snap, q, s.opts))
		}
		view = listing.BuildView(snap, q, s.opts)

		// a reload can shrink the collection under a session's page
		if view.TotalPages > 0 && view.CurrentPage > view.TotalPages {
			q.SetPage(view.TotalPages, view.TotalPages)
			view = listing.BuildView(snap, q, s.opts)
		}
	}

	if fn == nil {
		s.sessions.Peek(sessionID, build)
	} else {
		s.sessions.With(sessionID, build)
	}
	return view
}
