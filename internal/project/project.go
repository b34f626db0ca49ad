package project

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no project matches the lookup.
	ErrNotFound = errors.New("project not found")
	// ErrInvalid wraps validation failures on user-supplied records.
	ErrInvalid = errors.New("invalid project")
	// ErrConflict is returned when a slug is already taken.
	ErrConflict = errors.New("project slug already exists")
)

// Project is a single portfolio entry.
type Project struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Slug             string    `json:"slug"`
	ShortDescription string    `json:"short_description"`
	LongDescription  string    `json:"long_description"`
	FeaturedImage    string    `json:"featured_image"`
	Featured         bool      `json:"featured"`
	GithubURL        string    `json:"github_url,omitempty"`
	LiveURL          string    `json:"live_url,omitempty"`
	Tags             []string  `json:"tags"`
	Views            int64     `json:"views"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Summary is the reduced record used for sibling navigation.
type Summary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	FeaturedImage string `json:"featured_image"`
}

// ListOptions filters List calls.
type ListOptions struct {
	FeaturedOnly bool
	Limit        int
}

// ContentProvider resolves a project by its public slug.
type ContentProvider interface {
	FetchBySlug(ctx context.Context, slug string) (*Project, error)
}

// Store is the full persistence surface used by the API and pages.
type Store interface {
	ContentProvider

	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, opts ListOptions) ([]Project, error)
	Create(ctx context.Context, p *Project) (*Project, error)
	Update(ctx context.Context, id string, patch Patch) (*Project, error)
	Delete(ctx context.Context, id string) error

	// Related returns featured projects other than excludeID.
	Related(ctx context.Context, excludeID string, limit int) ([]Summary, error)

	// IncrementViews adds the per-slug deltas to the stored view counters.
	IncrementViews(ctx context.Context, deltas map[string]int64) error

	Close() error
}
