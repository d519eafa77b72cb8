package resolver

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Transliterate strips diacritics from the file name of a URL. Directory,
// query and the file name's percent-encoding style are kept. A URL without
// accented characters is returned unchanged.
func Transliterate(rawURL string) string {
	base, rest := splitQuery(rawURL)
	slash := strings.LastIndex(base, "/")
	dir, name := base[:slash+1], base[slash+1:]

	decoded, err := url.PathUnescape(name)
	if err != nil {
		decoded = name
	}

	stripped := removeAccents(decoded)
	if stripped == decoded {
		return rawURL
	}
	if decoded != name {
		stripped = url.PathEscape(stripped)
	}
	return dir + stripped + rest
}

// EncodeURL returns the percent-encoded form of a URL that may contain raw
// unicode. Already encoded URLs are returned as they are.
func EncodeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.String()
}

// fileName returns the decoded last path segment of a URL.
func fileName(rawURL string) string {
	base, _ := splitQuery(rawURL)
	name := path.Base(base)
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

func splitQuery(rawURL string) (string, string) {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i], rawURL[i:]
	}
	return rawURL, ""
}
