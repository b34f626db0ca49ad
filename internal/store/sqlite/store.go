package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zg0ul/portfolio/internal/project"
	_ "modernc.org/sqlite"
)

// Store persists projects in a local SQLite database.
type Store struct {
	db *sql.DB
}

var _ project.Store = (*Store)(nil)

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// dsn appends the connection pragmas to path.
func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*project.Project, error) {
	var p project.Project
	var tags string
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.ShortDescription, &p.LongDescription,
		&p.FeaturedImage, &p.Featured, &p.GithubURL, &p.LiveURL, &tags, &p.Views,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil || p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*project.Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE "+where, arg)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, project.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return p, nil
}

// FetchBySlug implements project.ContentProvider.
func (s *Store) FetchBySlug(ctx context.Context, slug string) (*project.Project, error) {
	return s.getOne(ctx, "slug = ?", slug)
}

func (s *Store) Get(ctx context.Context, id string) (*project.Project, error) {
	return s.getOne(ctx, "id = ?", id)
}

func (s *Store) List(ctx context.Context, opts project.ListOptions) ([]project.Project, error) {
	q := "SELECT " + projectColumns + " FROM projects"
	var args []any
	if opts.FeaturedOnly {
		q += " WHERE featured = 1"
	}
	q += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *Store) Create(ctx context.Context, p *project.Project) (*project.Project, error) {
	if err := project.Validate(p); err != nil {
		return nil, err
	}
	created := *p
	created.ID = uuid.NewString()
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now
	created.Views = 0

	tags, err := json.Marshal(created.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, created.ID, created.Title, created.Slug, created.ShortDescription, created.LongDescription,
		created.FeaturedImage, created.Featured, created.GithubURL, created.LiveURL, string(tags),
		created.Views, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return nil, translateWriteErr(err, created.Slug)
	}
	return &created, nil
}

// Update applies patch to the project with the given id.
func (s *Store) Update(ctx context.Context, id string, patch project.Patch) (*project.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	p, err := scanProject(tx.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, project.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if err := patch.Apply(p); err != nil {
		return nil, err
	}

	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE projects SET title = ?, slug = ?, short_description = ?, long_description = ?,
			featured_image = ?, featured = ?, github_url = ?, live_url = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, p.Title, p.Slug, p.ShortDescription, p.LongDescription, p.FeaturedImage, p.Featured,
		p.GithubURL, p.LiveURL, string(tags), p.UpdatedAt, id)
	if err != nil {
		return nil, translateWriteErr(err, p.Slug)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, project.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return p, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return project.ErrNotFound
	}
	return nil
}

func (s *Store) Related(ctx context.Context, excludeID string, limit int) ([]project.Summary, error) {
	if limit <= 0 {
		limit = 2
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, slug, featured_image FROM projects
		WHERE id != ? AND featured = 1
		ORDER BY created_at DESC
		LIMIT ?
	`, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("related projects: %w", err)
	}
	defer rows.Close()

	var out []project.Summary
	for rows.Next() {
		var sm project.Summary
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.Slug, &sm.FeaturedImage); err != nil {
			return nil, fmt.Errorf("scan related: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Store) IncrementViews(ctx context.Context, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin views: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE projects SET views = views + ? WHERE slug = ?")
	if err != nil {
		return fmt.Errorf("prepare views: %w", err)
	}
	defer stmt.Close()

	for slug, n := range deltas {
		if _, err := stmt.ExecContext(ctx, n, slug); err != nil {
			return fmt.Errorf("increment views %s: %w", slug, err)
		}
	}
	return tx.Commit()
}

func translateWriteErr(err error, slug string) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s", project.ErrConflict, slug)
	}
	return fmt.Errorf("write project: %w", err)
}
