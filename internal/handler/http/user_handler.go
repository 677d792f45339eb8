// Package httphandler exposes the user directory over JSON and HTML.
package httphandler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/userdir/internal/domain/errs"
	"github.com/lllypuk/userdir/internal/domain/listing"
	"github.com/lllypuk/userdir/internal/domain/user"
	"github.com/lllypuk/userdir/internal/infrastructure/httpserver"
	"github.com/lllypuk/userdir/internal/middleware"
)

const maxSearchTermLength = 100

// UserListService is the intent surface of the directory.
// Declared on the consumer side.
type UserListService interface {
	View(sessionID string) listing.View
	Search(sessionID, term string) listing.View
	ChangePage(sessionID string, page int) listing.View
	Reset(sessionID string) listing.View
	Reload(ctx context.Context, sessionID string) (listing.View, error)
	SelectUser(id int) (user.User, error)
}

// SearchRequest is the body of POST /users/search.
type SearchRequest struct {
	Term string `json:"term"`
}

// PageRequest is the body of POST /users/page.
type PageRequest struct {
	Page int `json:"page"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	City        string `json:"city"`
	Company     string `json:"company"`
	Initials    string `json:"initials"`
	AvatarColor string `json:"avatar_color"`
}

// ViewResponse is one rendered page of the list.
type ViewResponse struct {
	Items          []UserResponse `json:"items"`
	Loading        bool           `json:"loading"`
	Error          string         `json:"error,omitempty"`
	SearchTerm     string         `json:"search_term"`
	CurrentPage    int            `json:"current_page"`
	TotalPages     int            `json:"total_pages"`
	TotalCount     int            `json:"total_count"`
	FilteredCount  int            `json:"filtered_count"`
	HasNextPage    bool           `json:"has_next_page"`
	HasPrevPage    bool           `json:"has_prev_page"`
	Pages          []int          `json:"pages"`
	EllipsisStart  bool           `json:"ellipsis_start"`
	EllipsisEnd    bool           `json:"ellipsis_end"`
	ShowPagination bool           `json:"show_pagination"`
	EmptyResult    bool           `json:"empty_result"`
}

// UserHandler handles the JSON list intents.
type UserHandler struct {
	service UserListService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service UserListService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRoutes registers user routes with the router.
func (h *UserHandler) RegisterRoutes(r *httpserver.Router) {
	api := r.API()
	api.GET("/users", h.List)
	api.POST("/users/search", h.Search)
	api.POST("/users/page", h.ChangePage)
	api.POST("/users/reset", h.Reset)
	api.POST("/users/reload", h.Reload)
	api.GET("/users/:id", h.Get)
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(c echo.Context) error {
	view := h.service.View(middleware.GetSessionID(c))
	return httpserver.RespondOK(c, ToViewResponse(view))
}

// Search handles POST /api/v1/users/search.
func (h *UserHandler) Search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	if utf8.RuneCountInString(req.Term) > maxSearchTermLength {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("search term must be at most %d characters", maxSearchTermLength))
	}

	view := h.service.Search(middleware.GetSessionID(c), req.Term)
	return httpserver.RespondOK(c, ToViewResponse(view))
}

// ChangePage handles POST /api/v1/users/page.
// An out-of-range page is not an error; the current page is returned.
func (h *UserHandler) ChangePage(c echo.Context) error {
	var req PageRequest
	if err := c.Bind(&req); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}

	view := h.service.ChangePage(middleware.GetSessionID(c), req.Page)
	return httpserver.RespondOK(c, ToViewResponse(view))
}

// Reset handles POST /api/v1/users/reset.
func (h *UserHandler) Reset(c echo.Context) error {
	view := h.service.Reset(middleware.GetSessionID(c))
	return httpserver.RespondOK(c, ToViewResponse(view))
}

// Reload handles POST /api/v1/users/reload.
// A failed load answers 502 and still carries the (empty) view.
func (h *UserHandler) Reload(c echo.Context) error {
	view, err := h.service.Reload(c.Request().Context(), middleware.GetSessionID(c))
	if err != nil {
		return httpserver.RespondErrorWithData(c, err, ToViewResponse(view))
	}
	return httpserver.RespondOK(c, ToViewResponse(view))
}

// Get handles GET /api/v1/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseUserID(c.Param("id"))
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	u, err := h.service.SelectUser(id)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	return httpserver.RespondOK(c, ToUserResponse(u))
}

func parseUserID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid user id %q", errs.ErrInvalidInput, raw)
	}
	return id, nil
}

// ToUserResponse converts a domain user to its API representation.
func ToUserResponse(u user.User) UserResponse {
	return UserResponse{
		ID:          u.ID(),
		Name:        u.Name(),
		Username:    u.Username(),
		Email:       u.Email(),
		Phone:       u.Phone(),
		Website:     u.Website(),
		City:        u.City(),
		Company:     u.Company(),
		Initials:    u.Initials(),
		AvatarColor: u.AvatarColor(),
	}
}

// ToViewResponse converts a list view to its API representation.
func ToViewResponse(v listing.View) ViewResponse {
	items := make([]UserResponse, 0, len(v.Items))
	for _, u := range v.Items {
		items = append(items, ToUserResponse(u))
	}

	pages := v.Window.Pages
	if pages == nil {
		pages = []int{}
	}

	return ViewResponse{
		Items:          items,
		Loading:        v.Loading,
		Error:          v.Error,
		SearchTerm:     v.SearchTerm,
		CurrentPage:    v.CurrentPage,
		TotalPages:     v.TotalPages,
		TotalCount:     v.TotalCount,
		FilteredCount:  v.FilteredCount,
		HasNextPage:    v.HasNextPage,
		HasPrevPage:    v.HasPrevPage,
		Pages:          pages,
		EllipsisStart:  v.Window.EllipsisStart,
		EllipsisEnd:    v.Window.EllipsisEnd,
		ShowPagination: v.ShowPagination,
		EmptyResult:    v.EmptyResult,
	}
}
