package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zg0ul/portfolio/internal/assets"
	"github.com/zg0ul/portfolio/internal/excerpt"
	"github.com/zg0ul/portfolio/internal/imageproxy"
	"github.com/zg0ul/portfolio/internal/project"
	"github.com/zg0ul/portfolio/internal/render"
	"github.com/zg0ul/portfolio/internal/toc"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// imageQuality is used for every proxied image on rendered pages.
const imageQuality = 75

// Store is what the pages need from the project store.
type Store interface {
	project.ContentProvider
	List(ctx context.Context, opts project.ListOptions) ([]project.Project, error)
	Related(ctx context.Context, excludeID string, limit int) ([]project.Summary, error)
}

// ViewRecorder counts page views.
type ViewRecorder interface {
	Record(slug string) bool
}

// Config carries the page handler dependencies.
type Config struct {
	Store        Store
	Renderer     *render.Renderer
	Views        ViewRecorder
	Site         Site
	RelatedLimit int
	Log          *slog.Logger
}

// Handler serves the public HTML pages.
type Handler struct {
	store        Store
	renderer     *render.Renderer
	views        ViewRecorder
	site         Site
	relatedLimit int
	log          *slog.Logger
	pages        map[string]*template.Template
}

// NewHandler parses the page templates.
func NewHandler(cfg Config) (*Handler, error) {
	funcs := assets.FuncMap()
	funcs["image"] = func(src string, width int) string {
		return imageproxy.URL(src, width, imageQuality)
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"index", "project", "notfound"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}

	if cfg.Renderer == nil {
		cfg.Renderer = render.New()
	}
	return &Handler{
		store:        cfg.Store,
		renderer:     cfg.Renderer,
		views:        cfg.Views,
		site:         cfg.Site,
		relatedLimit: cfg.RelatedLimit,
		log:          cfg.Log.With("component", "web"),
		pages:        pages,
	}, nil
}

// Routes registers the page routes on r.
func (h *Handler) Routes(r chi.Router) {
	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/projects", http.StatusFound)
	})
	r.Get("/projects", h.handleIndex)
	r.Get("/projects/{slug}", h.handleProject)
}

type indexPage struct {
	Meta     Metadata
	Site     Site
	Projects []project.Project
}

type projectPage struct {
	Meta        Metadata
	Site        Site
	Project     *project.Project
	Body        template.HTML
	InlineToC   template.HTML
	FloatingToC template.HTML
	ReadingTime int
	Related     []project.Summary
}

type notFoundPage struct {
	Meta Metadata
	Site Site
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.List(r.Context(), project.ListOptions{})
	if err != nil {
		h.log.Error("list projects failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.page(w, http.StatusOK, "index", indexPage{Meta: IndexMetadata(h.site), Site: h.site, Projects: projects})
}

func (h *Handler) handleProject(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	log := h.log.With("slug", slug)

	p, err := h.store.FetchBySlug(r.Context(), slug)
	if errors.Is(err, project.ErrNotFound) {
		h.page(w, http.StatusNotFound, "notfound", notFoundPage{Meta: NotFoundMetadata(h.site), Site: h.site})
		return
	}
	if err != nil {
		log.Error("fetch project failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	doc, err := h.renderer.Render(p.LongDescription)
	if err != nil {
		log.Error("render project failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	inline := toc.NewWidget(doc.Headings, toc.Options{Presentation: toc.Inline})
	floating := toc.NewWidget(doc.Headings, toc.Options{Presentation: toc.Floating})
	if section := r.URL.Query().Get("section"); section != "" {
		inline.Select(section)
		floating.Select(section)
	}
	inlineHTML, err := toc.RenderHTML(inline)
	if err != nil {
		log.Error("render toc failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	floatingHTML, err := toc.RenderHTML(floating)
	if err != nil {
		log.Error("render toc failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var related []project.Summary
	if h.relatedLimit > 0 {
		related, err = h.store.Related(r.Context(), p.ID, h.relatedLimit)
		if err != nil {
			// The page is still useful without siblings.
			log.Warn("related projects failed", "error", err)
			related = nil
		}
	}

	if h.views != nil {
		h.views.Record(p.Slug)
	}

	h.page(w, http.StatusOK, "project", projectPage{
		Meta:        ProjectMetadata(h.site, p),
		Site:        h.site,
		Project:     p,
		Body:        doc.HTML,
		InlineToC:   inlineHTML,
		FloatingToC: floatingHTML,
		ReadingTime: excerpt.ReadingTime(doc.Words),
		Related:     related,
	})
}

// page renders a full page into a buffer first so template errors become
// a clean 500.
func (h *Handler) page(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.log.Error("execute template failed", "page", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
