package extract

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"ImportFixer/internal/domain"
)

var (
	imageFileExpr = regexp.MustCompile(`(?i)^(.*?)(?:-(\d+)x(\d+))?\.(jpe?g|png|bmp)$`)
	imageIDExpr   = regexp.MustCompile(`(?:^|\s)wp-image-(\d+)(?:\s|$)`)
)

// ExtractImages returns the <img> tags in text whose src lives under
// uploadBaseURL and names a supported image file. Attributes are read from
// the tokenised tag, so their order does not matter. Matches are unique by
// URL in order of first occurrence.
func ExtractImages(text, uploadBaseURL string) []domain.ImageMatch {
	if uploadBaseURL == "" || text == "" {
		return nil
	}

	var (
		matches []domain.ImageMatch
		seen    = map[string]struct{}{}
		z       = html.NewTokenizer(strings.NewReader(text))
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			return matches
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "img" || !hasAttr {
				continue
			}

			class, src, alt := imageAttrs(z)
			if !strings.HasPrefix(src, uploadBaseURL) {
				continue
			}
			if _, ok := seen[src]; ok {
				continue
			}

			match, ok := parseImage(src)
			if !ok {
				continue
			}
			match.Alt = alt
			match.AttachmentIDHint = attachmentID(class)

			seen[src] = struct{}{}
			matches = append(matches, match)
		}
	}
}

// OriginalPath strips a -WIDTHxHEIGHT suffix from an image URL. It returns
// the un-resized URL and the size, or the URL itself and "full".
func OriginalPath(imageURL string) (string, string) {
	match, ok := parseImage(imageURL)
	if !ok {
		return imageURL, domain.SizeFull
	}
	return match.OriginalPath, match.Size
}

func imageAttrs(z *html.Tokenizer) (class, src, alt string) {
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "class":
			class = string(val)
		case "src":
			src = strings.TrimSpace(string(val))
		case "alt":
			alt = string(val)
		}
		if !more {
			return class, src, alt
		}
	}
}

func parseImage(imageURL string) (domain.ImageMatch, bool) {
	base, rest := splitQuery(imageURL)
	parts := imageFileExpr.FindStringSubmatch(base)
	if parts == nil {
		return domain.ImageMatch{}, false
	}

	match := domain.ImageMatch{URL: imageURL, Size: domain.SizeFull, OriginalPath: imageURL}
	if parts[2] != "" {
		match.Size = parts[2] + "x" + parts[3]
		match.OriginalPath = parts[1] + "." + parts[4] + rest
	}
	return match, true
}

func splitQuery(rawURL string) (string, string) {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i], rawURL[i:]
	}
	return rawURL, ""
}

func attachmentID(class string) int64 {
	parts := imageIDExpr.FindStringSubmatch(class)
	if parts == nil {
		return 0
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
