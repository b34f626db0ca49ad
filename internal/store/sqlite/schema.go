package sqlite

// pragmas are set through the DSN so every pooled connection gets them.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    short_description TEXT NOT NULL DEFAULT '',
    long_description TEXT NOT NULL DEFAULT '',
    featured_image TEXT NOT NULL DEFAULT '',
    featured BOOLEAN NOT NULL DEFAULT 0,
    github_url TEXT NOT NULL DEFAULT '',
    live_url TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',   -- JSON array of strings
    views INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_featured ON projects(featured) WHERE featured = 1;
CREATE INDEX IF NOT EXISTS idx_projects_created ON projects(created_at);
`

const projectColumns = `id, title, slug, short_description, long_description, featured_image,
	featured, github_url, live_url, tags, views, created_at, updated_at`
