// Package extract finds links and upload images in raw markup.
package extract

import (
	"iter"
	"regexp"

	"ImportFixer/internal/domain"
)

// linkExpr matches href=, a quote, the shortest run without that quote or a
// newline, then the same quote. RE2 has no back-references, so each quote
// style gets its own branch.
var linkExpr = regexp.MustCompile(`(?i)href=(?:"([^"\n]+)"|'([^'\n]+)')`)

// ExtractLinks yields every href attribute in text, first to last.
// The sequence is lazy; ranging over it again restarts the scan.
func ExtractLinks(text string) iter.Seq[domain.LinkMatch] {
	return func(yield func(domain.LinkMatch) bool) {
		pos := 0
		for pos < len(text) {
			loc := linkExpr.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				return
			}

			match := domain.LinkMatch{Raw: text[pos+loc[0] : pos+loc[1]]}
			if loc[2] >= 0 {
				match.Quote = `"`
				match.Href = text[pos+loc[2] : pos+loc[3]]
			} else {
				match.Quote = `'`
				match.Href = text[pos+loc[4] : pos+loc[5]]
			}

			if !yield(match) {
				return
			}
			pos += loc[1]
		}
	}
}

// CollectLinks returns all links in text as a slice.
func CollectLinks(text string) []domain.LinkMatch {
	var links []domain.LinkMatch
	for link := range ExtractLinks(text) {
		links = append(links, link)
	}
	return links
}
