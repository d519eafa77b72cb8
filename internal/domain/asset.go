package domain

// AssetRecord is a stored reference to an uploaded binary file.
type AssetRecord struct {
	ID        int64
	ParentID  int64
	URL       string
	FilePath  string
	Title     string
	Alt       string
	MimeType  string
	Permalink string
}

// AssetDraft describes an asset to be created.
type AssetDraft struct {
	ParentID int64
	URL      string
	FilePath string
	Title    string
	Alt      string
	Metadata AssetMetadata
}

// AssetMetadata is derived from the remote file when an asset is created.
type AssetMetadata struct {
	MimeType string `json:"mime_type,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	FileSize int64  `json:"filesize,omitempty"`
}

// ReplaceWith selects which asset address an anchor is pointed at.
type ReplaceWith string

const (
	ReplaceWithPermalink ReplaceWith = "permalink"
	ReplaceWithSrc       ReplaceWith = "src"
)

// Valid reports whether r is one of the known targets.
func (r ReplaceWith) Valid() bool {
	return r == ReplaceWithPermalink || r == ReplaceWithSrc
}
