package httphandler

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/userdir/internal/domain/listing"
	"github.com/lllypuk/userdir/internal/domain/user"
	"github.com/lllypuk/userdir/internal/infrastructure/httpserver"
	"github.com/lllypuk/userdir/internal/middleware"
)

// Template names.
const (
	templatePage     = "users/page.html"
	templateNotFound = "errors/not_found.html"
	partialList      = "users/list"
	partialDetail    = "users/detail"
)

// TemplateRenderer implements echo.Renderer for HTML template rendering.
type TemplateRenderer struct {
	templates *template.Template
	mu        sync.RWMutex
	logger    *slog.Logger
	devMode   bool
	fs        fs.FS
}

// TemplateRendererConfig holds configuration for the template renderer.
type TemplateRendererConfig struct {
	// FS holds a "templates" directory of *.html files.
	FS     fs.FS
	Logger *slog.Logger
	// DevMode re-parses templates on every render.
	DevMode bool
}

// NewTemplateRenderer creates a new template renderer.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		logger:  cfg.Logger,
		devMode: cfg.DevMode,
		fs:      cfg.FS,
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *TemplateRenderer) loadTemplates() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmpl := template.New("").Funcs(TemplateFuncs())

	err := fs.WalkDir(r.fs, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}

		content, readErr := fs.ReadFile(r.fs, p)
		if readErr != nil {
			return readErr
		}

		name := p[len("templates/"):]
		if _, parseErr := tmpl.New(name).Parse(string(content)); parseErr != nil {
			r.logger.Error("failed to parse template",
				slog.String("path", p),
				slog.String("error", parseErr.Error()))
			return parseErr
		}

		r.logger.Debug("loaded template", slog.String("name", name))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	r.templates = tmpl
	return nil
}

// Render implements echo.Renderer.
func (r *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	if r.devMode {
		if err := r.loadTemplates(); err != nil {
			return err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(w, name, data)
}

// PageData is passed to full page templates.
type PageData struct {
	Title string
	Data  any
}

// DetailData is passed to the detail partial.
type DetailData struct {
	User  *user.User
	Error string
}

// TemplateHandler renders the directory page and its partials.
type TemplateHandler struct {
	renderer *TemplateRenderer
	service  UserListService
	logger   *slog.Logger
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(renderer *TemplateRenderer, service UserListService, logger *slog.Logger) *TemplateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateHandler{
		renderer: renderer,
		service:  service,
		logger:   logger,
	}
}

func (h *TemplateHandler) render(c echo.Context, code int, templateName, title string, data any) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return h.renderer.Render(c.Response().Writer, templateName, PageData{Title: title, Data: data}, c)
}

// RenderPartial renders a template without the base layout.
func (h *TemplateHandler) RenderPartial(c echo.Context, code int, templateName string, data any) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return h.renderer.Render(c.Response().Writer, templateName, data, c)
}

// Home renders the full directory page. It accepts the same query
// parameters as the list partial so that links work without JavaScript.
func (h *TemplateHandler) Home(c echo.Context) error {
	return h.render(c, http.StatusOK, templatePage, "Usuarios", h.applyQuery(c))
}

// ListPartial renders the list fragment.
//
// Query parameters: reset=1 clears the search; q sets the term and returns
// to page 1; page moves to that page. They apply in that order.
func (h *TemplateHandler) ListPartial(c echo.Context) error {
	return h.RenderPartial(c, http.StatusOK, partialList, h.applyQuery(c))
}

func (h *TemplateHandler) applyQuery(c echo.Context) listing.View {
	sid := middleware.GetSessionID(c)
	params := c.QueryParams()

	var view listing.View
	applied := false

	if params.Get("reset") == "1" {
		view = h.service.Reset(sid)
		applied = true
	}
	if params.Has("q") {
		view = h.service.Search(sid, truncateRunes(params.Get("q"), maxSearchTermLength))
		applied = true
	}
	if raw := params.Get("page"); raw != "" {
		// unparsable pages are treated like any other out-of-range page
		page, _ := strconv.Atoi(raw)
		view = h.service.ChangePage(sid, page)
		applied = true
	}

	if !applied {
		view = h.service.View(sid)
	}
	return view
}

// DetailPartial renders the detail overlay for one user.
func (h *TemplateHandler) DetailPartial(c echo.Context) error {
	id, err := parseUserID(c.Param("id"))
	if err == nil {
		var u user.User
		if u, err = h.service.SelectUser(id); err == nil {
			return h.RenderPartial(c, http.StatusOK, partialDetail, DetailData{User: &u})
		}
	}

	return h.RenderPartial(c, httpserver.StatusFor(err), partialDetail, DetailData{
		Error: detailErrorMessage(httpserver.StatusFor(err)),
	})
}

// ReloadPartial retries the upstream load and renders the resulting list.
// A failed load is shown inside the list, so the status stays 200.
func (h *TemplateHandler) ReloadPartial(c echo.Context) error {
	view, err := h.service.Reload(c.Request().Context(), middleware.GetSessionID(c))
	if err != nil {
		h.logger.WarnContext(c.Request().Context(), "reload failed", slog.String("error", err.Error()))
	}
	return h.RenderPartial(c, http.StatusOK, partialList, view)
}

// NotFound renders the 404 page.
func (h *TemplateHandler) NotFound(c echo.Context) error {
	return h.render(c, http.StatusNotFound, templateNotFound, "No encontrado", nil)
}

// ErrorHandler renders the 404 page for browser requests outside apiPrefix
// and hands everything else to next.
func (h *TemplateHandler) ErrorHandler(apiPrefix string, next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var he *echo.HTTPError
		if c.Response().Committed || !errors.As(err, &he) || he.Code != http.StatusNotFound ||
			strings.HasPrefix(c.Request().URL.Path, apiPrefix) ||
			!strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
			next(err, c)
			return
		}

		if renderErr := h.NotFound(c); renderErr != nil {
			h.logger.Error("failed to render not found page", slog.String("error", renderErr.Error()))
		}
	}
}

// SetupPageRoutes registers HTML page routes.
func (h *TemplateHandler) SetupPageRoutes(g *echo.Group) {
	g.GET("/", h.Home)

	partials := g.Group("/partials")
	partials.GET("/users", h.ListPartial)
	partials.GET("/users/:id", h.DetailPartial)
	partials.POST("/users/reload", h.ReloadPartial)
}

// SetupStaticRoutes registers routes for serving static files.
func SetupStaticRoutes(e *echo.Echo, staticFS fs.FS) error {
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}

	e.StaticFS("/static", staticSub)
	return nil
}

func detailErrorMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "Usuario no encontrado"
	case http.StatusBadRequest:
		return "Identificador de usuario no válido"
	default:
		return "Ocurrió un error inesperado"
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
