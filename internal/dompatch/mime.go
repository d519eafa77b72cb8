package dompatch

import (
	"net/url"
	"path"
	"strings"
)

// imageTypes mirrors the image entries of WordPress' mime map.
var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"jpe":  "image/jpeg",
	"gif":  "image/gif",
	"png":  "image/png",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",
	"ico":  "image/x-icon",
	"heic": "image/heic",
	"avif": "image/avif",
}

// ImageMimeType infers an image mime type from the extension of a URL path.
func ImageMimeType(ref string) (string, bool) {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	mime, ok := imageTypes[ext]
	return mime, ok
}

// IsImageURL reports whether ref points at an image file.
func IsImageURL(ref string) bool {
	_, ok := ImageMimeType(ref)
	return ok
}
