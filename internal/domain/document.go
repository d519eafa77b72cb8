package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Document is a unit of stored content: markup plus metadata.
type Document struct {
	ID          int64
	Slug        string
	PostType    string
	Status      string
	Content     string
	PublishedAt time.Time
	ModifiedAt  time.Time
	Meta        map[string]string
}

// DocumentUpdate carries the fields of a partial document update.
type DocumentUpdate struct {
	Content *string
}

// DocumentFilter narrows a paginated document listing.
// After and Before are inclusive bounds on the publish date.
type DocumentFilter struct {
	Search    string
	PostTypes []string
	After     *time.Time
	Before    *time.Time
}

// ListQuery addresses one page of documents ordered by id.
// AfterID is a keyset cursor: only documents with a greater id are returned.
type ListQuery struct {
	Filter  DocumentFilter
	AfterID int64
	Limit   int
}

// LinkMatch is an href attribute found in raw markup.
type LinkMatch struct {
	Raw   string // full matched text, e.g. href="https://example.com"
	Quote string
	Href  string
}

// ImageMatch is an <img> tag whose source lives under the upload directory.
type ImageMatch struct {
	URL              string
	Size             string // "WIDTHxHEIGHT" or "full"
	OriginalPath     string
	AttachmentIDHint int64
	Alt              string
}

// SizeFull marks an image URL without a size suffix.
const SizeFull = "full"
