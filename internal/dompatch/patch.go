package dompatch

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ImportFixer/internal/domain"
)

var (
	classTokenExpr = regexp.MustCompile(`\S+`)
	imageClassExpr = regexp.MustCompile(`^wp-image-\d+$`)
)

// Result is a patched fragment and the edits that produced it.
type Result struct {
	Content string
	Changes []domain.Change
}

// Changed reports whether the patch altered the fragment.
func (r Result) Changed() bool {
	return len(r.Changes) > 0
}

// AssetLookup resolves an image source to its asset record.
// found is false when no asset matches.
type AssetLookup func(ctx context.Context, src string) (asset domain.AssetRecord, found bool, err error)

// FillEmptyImageSrcs sets the src of every <img src=""> that sits directly
// inside an anchor linking to an image file. Anything else, including
// images that already have a source, is left alone. Unparseable input is
// returned unchanged.
func FillEmptyImageSrcs(fragment string) Result {
	unchanged := Result{Content: fragment}

	f, err := ParseFragment(fragment)
	if err != nil {
		return unchanged
	}

	edits := Edits{}
	var changes []domain.Change

	f.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		if strings.TrimSpace(href) == "" || !IsImageURL(href) {
			return
		}
		anchorIdx, ok := f.TagIndex(a)
		if !ok {
			return
		}
		rawHref, ok := f.RawAttr(anchorIdx, "href")
		if !ok {
			return
		}

		a.ChildrenFiltered("img").Each(func(_ int, img *goquery.Selection) {
			src, ok := img.Attr("src")
			if !ok || src != "" {
				return
			}
			imgIdx, ok := f.TagIndex(img)
			if !ok {
				return
			}
			edits.Set(imgIdx, "src", rawHref)
			changes = append(changes, domain.Change{To: href, Note: "filled empty img src"})
		})
	})

	if len(changes) == 0 {
		return unchanged
	}
	return Result{Content: f.Render(edits), Changes: changes}
}

// RetargetImageHrefs points each anchor that directly wraps an image at the
// image's asset, either its permalink or its source URL, and rewrites a
// wp-image-<id> class token to the asset id. Images without an asset are
// left alone. A lookup error aborts the patch.
func RetargetImageHrefs(ctx context.Context, fragment string, lookup AssetLookup, replaceWith domain.ReplaceWith) (Result, error) {
	unchanged := Result{Content: fragment}
	if lookup == nil {
		return unchanged, nil
	}

	f, err := ParseFragment(fragment)
	if err != nil {
		return unchanged, nil
	}

	type lookupResult struct {
		asset domain.AssetRecord
		found bool
	}

	var (
		edits     = Edits{}
		changes   []domain.Change
		resolved  = map[string]lookupResult{}
		lookupErr error
	)

	f.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		img := a.ChildrenFiltered("img").First()
		if img.Length() == 0 {
			return true
		}
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			return true
		}
		anchorIdx, okA := f.TagIndex(a)
		imgIdx, okI := f.TagIndex(img)
		if !okA || !okI {
			return true
		}

		res, ok := resolved[src]
		if !ok {
			asset, found, err := lookup(ctx, src)
			if err != nil {
				lookupErr = fmt.Errorf("lookup asset for %s: %w", src, err)
				return false
			}
			res = lookupResult{asset: asset, found: found}
			resolved[src] = res
		}
		if !res.found {
			return true
		}

		target := res.asset.URL
		if replaceWith == domain.ReplaceWithPermalink {
			target = res.asset.Permalink
		}
		if target != "" {
			if href, _ := a.Attr("href"); href != target {
				edits.Set(anchorIdx, "href", html.EscapeString(target))
				changes = append(changes, domain.Change{From: href, To: target, Note: "image link target"})
			}
		}

		if class, ok := img.Attr("class"); ok {
			if updated := replaceImageClass(class, res.asset.ID); updated != class {
				edits.Set(imgIdx, "class", html.EscapeString(updated))
				changes = append(changes, domain.Change{From: class, To: updated, Note: "image class"})
			}
		}
		return true
	})

	if lookupErr != nil {
		return unchanged, lookupErr
	}
	if len(changes) == 0 {
		return unchanged, nil
	}
	return Result{Content: f.Render(edits), Changes: changes}, nil
}

func replaceImageClass(class string, assetID int64) string {
	if assetID <= 0 {
		return class
	}
	want := "wp-image-" + strconv.FormatInt(assetID, 10)
	return classTokenExpr.ReplaceAllStringFunc(class, func(tok string) string {
		if imageClassExpr.MatchString(tok) {
			return want
		}
		return tok
	})
}
