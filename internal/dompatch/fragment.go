// Package dompatch applies structural fixes to HTML fragments without
// re-serialising the parsed tree. A fragment is tokenised once; a marked-up
// copy is parsed for goquery selectors; edits are applied to the original
// raw tags only, so every untouched byte round-trips unchanged.
package dompatch

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// indexAttr is added to the parse copy only; it never reaches the output.
const indexAttr = "data-importfixer-idx"

var errUnstableTokens = errors.New("tokens do not cover the fragment")

// addressable lists the tags a patch may rewrite.
var addressable = map[string]bool{"a": true, "img": true}

type token struct {
	raw         string
	addressable bool
}

// Fragment is a parsed markup snippet. It is never mutated after parsing.
type Fragment struct {
	source string
	tokens []token
	doc    *goquery.Document
}

// Edits maps token positions to the attribute values to set on them.
type Edits map[int][]attrEdit

type attrEdit struct {
	name  string
	value string // encoded for use inside an attribute value
}

// Set records an attribute assignment for the tag at position idx.
// A later assignment to the same attribute replaces the earlier one.
func (e Edits) Set(idx int, name, value string) {
	for i, edit := range e[idx] {
		if edit.name == name {
			e[idx][i].value = value
			return
		}
	}
	e[idx] = append(e[idx], attrEdit{name: name, value: value})
}

// ParseFragment tokenises text and builds a queryable tree for it. The
// parser runs in a <div> context so no html/head/body shell is produced.
func ParseFragment(text string) (*Fragment, error) {
	f := &Fragment{source: text}

	var (
		annotated strings.Builder
		consumed  int
		z         = html.NewTokenizer(strings.NewReader(text))
	)
	annotated.Grow(len(text) + 64)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("tokenize fragment: %w", err)
			}
			break
		}

		raw := string(z.Raw())
		if !strings.HasPrefix(text[consumed:], raw) {
			return nil, errUnstableTokens
		}
		consumed += len(raw)

		tok := token{raw: raw}
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			name, _ := z.TagName()
			tok.addressable = addressable[string(name)]
		}

		if tok.addressable {
			annotated.WriteString(annotate(raw, len(f.tokens)))
		} else {
			annotated.WriteString(raw)
		}
		f.tokens = append(f.tokens, tok)
	}

	// An unterminated trailing tag is dropped by the tokenizer; keep its bytes.
	if tail := text[consumed:]; tail != "" {
		f.tokens = append(f.tokens, token{raw: tail})
		annotated.WriteString(tail)
	}

	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(annotated.String()), context)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	f.doc = goquery.NewDocumentFromNode(root)

	return f, nil
}

// Find runs a CSS selector over the fragment tree.
func (f *Fragment) Find(selector string) *goquery.Selection {
	return f.doc.Find(selector)
}

// TagIndex returns the token position of the element in sel, if it maps
// back to a tag in the source.
func (f *Fragment) TagIndex(sel *goquery.Selection) (int, bool) {
	v, ok := sel.Attr(indexAttr)
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(v)
	if err != nil || idx < 0 || idx >= len(f.tokens) || !f.tokens[idx].addressable {
		return 0, false
	}
	return idx, true
}

// RawAttr returns the attribute value exactly as written in the source tag.
func (f *Fragment) RawAttr(idx int, name string) (string, bool) {
	if idx < 0 || idx >= len(f.tokens) {
		return "", false
	}
	raw := f.tokens[idx].raw
	a, ok := findAttr(scanAttrs(raw), name)
	if !ok {
		return "", false
	}
	if a.valueStart < 0 {
		return "", true
	}
	return raw[a.valueStart:a.valueEnd], true
}

// Render serialises the fragment with edits applied. Tokens without edits
// are written back byte for byte.
func (f *Fragment) Render(edits Edits) string {
	if len(edits) == 0 {
		return f.source
	}

	var b strings.Builder
	b.Grow(len(f.source) + 64)
	for i, tok := range f.tokens {
		if e, ok := edits[i]; ok && tok.addressable {
			b.WriteString(rewriteTag(tok.raw, e))
			continue
		}
		b.WriteString(tok.raw)
	}
	return b.String()
}

func annotate(raw string, idx int) string {
	end := tagNameEnd(raw)
	return raw[:end] + " " + indexAttr + `="` + strconv.Itoa(idx) + `"` + raw[end:]
}
