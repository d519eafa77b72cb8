// Package permalink builds canonical addresses for documents and assets.
package permalink

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Ref carries the document fields a permalink structure can reference.
type Ref struct {
	ID          int64
	Slug        string
	PostType    string
	PublishedAt time.Time
}

// Builder expands a WordPress-style structure such as "/%year%/%postname%/".
// An empty structure produces query-string links ("/?p=ID").
type Builder struct {
	base      string
	structure string
}

// NewBuilder validates the site base URL and normalises the structure.
func NewBuilder(baseURL, structure string) (*Builder, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid site url %q", baseURL)
	}

	structure = strings.TrimSpace(structure)
	if structure != "" && !strings.HasPrefix(structure, "/") {
		structure = "/" + structure
	}

	return &Builder{base: strings.TrimRight(parsed.String(), "/"), structure: structure}, nil
}

// Document returns the canonical URL of a document.
func (b *Builder) Document(ref Ref) string {
	if b.structure == "" || ref.Slug == "" {
		return fmt.Sprintf("%s/?p=%d", b.base, ref.ID)
	}

	path := b.structure
	if ref.PostType != "" && ref.PostType != "post" {
		// Only posts use the custom structure; other types live under their type.
		path = "/" + ref.PostType + "/%postname%/"
		if ref.PostType == "page" {
			path = "/%postname%/"
		}
	}

	published := ref.PublishedAt.UTC()
	replacer := strings.NewReplacer(
		"%postname%", url.PathEscape(ref.Slug),
		"%post_id%", strconv.FormatInt(ref.ID, 10),
		"%year%", published.Format("2006"),
		"%monthnum%", published.Format("01"),
		"%day%", published.Format("02"),
		"%post_type%", ref.PostType,
	)
	return b.base + replacer.Replace(path)
}

// Asset returns the attachment page URL of an asset.
func (b *Builder) Asset(id int64) string {
	return fmt.Sprintf("%s/?attachment_id=%d", b.base, id)
}
