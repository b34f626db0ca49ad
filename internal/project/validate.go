package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const maxSlugLen = 80

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}

// Validate checks a project before it is written. A missing slug is
// derived from the title.
func Validate(p *Project) error {
	if p == nil {
		return fmt.Errorf("%w: empty body", ErrInvalid)
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if !slugPattern.MatchString(p.Slug) {
		return fmt.Errorf("%w: slug %q must be lowercase words joined by hyphens", ErrInvalid, p.Slug)
	}
	if len(p.Slug) > maxSlugLen {
		return fmt.Errorf("%w: slug longer than %d characters", ErrInvalid, maxSlugLen)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title            *string   `json:"title,omitempty"`
	Slug             *string   `json:"slug,omitempty"`
	ShortDescription *string   `json:"short_description,omitempty"`
	LongDescription  *string   `json:"long_description,omitempty"`
	FeaturedImage    *string   `json:"featured_image,omitempty"`
	Featured         *bool     `json:"featured,omitempty"`
	GithubURL        *string   `json:"github_url,omitempty"`
	LiveURL          *string   `json:"live_url,omitempty"`
	Tags             *[]string `json:"tags,omitempty"`
}

// DecodePatch parses a JSON update body, rejecting unknown fields.
func DecodePatch(data []byte) (Patch, error) {
	var patch Patch
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		return Patch{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return patch, nil
}

// Empty reports whether the patch changes nothing.
func (pt Patch) Empty() bool {
	return pt.Title == nil && pt.Slug == nil && pt.ShortDescription == nil &&
		pt.LongDescription == nil && pt.FeaturedImage == nil && pt.Featured == nil &&
		pt.GithubURL == nil && pt.LiveURL == nil && pt.Tags == nil
}

// Check rejects patches that would blank the title or set an unusable
// slug. Backends that cannot run Apply call it before sending the patch.
func (pt Patch) Check() error {
	if pt.Title != nil && strings.TrimSpace(*pt.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if pt.Slug != nil {
		if !slugPattern.MatchString(*pt.Slug) {
			return fmt.Errorf("%w: slug %q must be lowercase words joined by hyphens", ErrInvalid, *pt.Slug)
		}
		if len(*pt.Slug) > maxSlugLen {
			return fmt.Errorf("%w: slug longer than %d characters", ErrInvalid, maxSlugLen)
		}
	}
	return nil
}

// Apply copies the set fields of pt onto p and revalidates.
func (pt Patch) Apply(p *Project) error {
	if err := pt.Check(); err != nil {
		return err
	}
	if pt.Title != nil {
		p.Title = *pt.Title
	}
	if pt.Slug != nil {
		p.Slug = *pt.Slug
	}
	if pt.ShortDescription != nil {
		p.ShortDescription = *pt.ShortDescription
	}
	if pt.LongDescription != nil {
		p.LongDescription = *pt.LongDescription
	}
	if pt.FeaturedImage != nil {
		p.FeaturedImage = *pt.FeaturedImage
	}
	if pt.Featured != nil {
		p.Featured = *pt.Featured
	}
	if pt.GithubURL != nil {
		p.GithubURL = *pt.GithubURL
	}
	if pt.LiveURL != nil {
		p.LiveURL = *pt.LiveURL
	}
	if pt.Tags != nil {
		p.Tags = *pt.Tags
	}
	p.UpdatedAt = time.Now().UTC()
	return Validate(p)
}
