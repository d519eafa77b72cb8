package dompatch

import (
	"sort"
	"strings"
)

// rawAttr locates one attribute inside a raw start tag.
type rawAttr struct {
	name       string // lower-cased
	nameEnd    int
	valueStart int // -1 when the attribute has no value
	valueEnd   int
	quote      byte // 0 when unquoted
}

// end is the offset just past the attribute, including a closing quote.
func (a rawAttr) end(rawLen int) int {
	switch {
	case a.valueStart < 0:
		return a.nameEnd
	case a.quote != 0:
		return min(a.valueEnd+1, rawLen)
	default:
		return a.valueEnd
	}
}

func isTagSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func tagNameEnd(raw string) int {
	i := 1
	for i < len(raw) && !isTagSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' {
		i++
	}
	return i
}

// scanAttrs follows the tokenizer's attribute rules closely enough to find
// value spans in tags the tokenizer has already accepted.
func scanAttrs(raw string) []rawAttr {
	var attrs []rawAttr
	i := tagNameEnd(raw)

	for {
		for i < len(raw) && (isTagSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= len(raw) || raw[i] == '>' {
			return attrs
		}

		start := i
		i++ // a name may start with '='
		for i < len(raw) && !isTagSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' && raw[i] != '=' {
			i++
		}
		a := rawAttr{name: strings.ToLower(raw[start:i]), nameEnd: i, valueStart: -1, valueEnd: -1}

		j := i
		for j < len(raw) && isTagSpace(raw[j]) {
			j++
		}
		if j < len(raw) && raw[j] == '=' {
			j++
			for j < len(raw) && isTagSpace(raw[j]) {
				j++
			}
			if j < len(raw) && (raw[j] == '"' || raw[j] == '\'') {
				a.quote = raw[j]
				a.valueStart = j + 1
				if end := strings.IndexByte(raw[j+1:], a.quote); end >= 0 {
					a.valueEnd = j + 1 + end
				} else {
					a.valueEnd = len(raw)
				}
				i = a.end(len(raw))
			} else {
				a.valueStart = j
				for j < len(raw) && !isTagSpace(raw[j]) && raw[j] != '>' {
					j++
				}
				a.valueEnd = j
				i = j
			}
		}

		attrs = append(attrs, a)
	}
}

func findAttr(attrs []rawAttr, name string) (rawAttr, bool) {
	name = strings.ToLower(name)
	for _, a := range attrs {
		if a.name == name {
			return a, true
		}
	}
	return rawAttr{}, false
}

type splice struct {
	start, end int
	text       string
	insert     bool
}

// rewriteTag sets attribute values in a raw start tag. Existing attributes
// keep their position and quote style; missing ones are appended after the
// last attribute.
func rewriteTag(raw string, edits []attrEdit) string {
	attrs := scanAttrs(raw)

	insertAt := tagNameEnd(raw)
	if len(attrs) > 0 {
		insertAt = attrs[len(attrs)-1].end(len(raw))
	}

	var (
		splices  []splice
		appended strings.Builder
	)
	for _, e := range edits {
		a, ok := findAttr(attrs, e.name)
		switch {
		case !ok:
			appended.WriteString(" " + e.name + `="` + quoteValue(e.value, '"') + `"`)
		case a.valueStart < 0:
			splices = append(splices, splice{start: a.nameEnd, end: a.nameEnd, text: `="` + quoteValue(e.value, '"') + `"`})
		case a.quote == 0:
			splices = append(splices, splice{start: a.valueStart, end: a.valueEnd, text: `"` + quoteValue(e.value, '"') + `"`})
		default:
			splices = append(splices, splice{start: a.valueStart, end: a.valueEnd, text: quoteValue(e.value, a.quote)})
		}
	}
	if appended.Len() > 0 {
		splices = append(splices, splice{start: insertAt, end: insertAt, text: appended.String(), insert: true})
	}

	// Apply right to left so earlier offsets stay valid. At equal offsets the
	// append goes first so it ends up after a value written at the same spot.
	sort.SliceStable(splices, func(i, j int) bool {
		if splices[i].start != splices[j].start {
			return splices[i].start > splices[j].start
		}
		return splices[i].insert && !splices[j].insert
	})

	out := raw
	for _, s := range splices {
		out = out[:s.start] + s.text + out[s.end:]
	}
	return out
}

// quoteValue makes an encoded value safe inside the given quote character.
func quoteValue(value string, quote byte) string {
	switch quote {
	case '"':
		return strings.ReplaceAll(value, `"`, "&#34;")
	case '\'':
		return strings.ReplaceAll(value, `'`, "&#39;")
	default:
		return value
	}
}
