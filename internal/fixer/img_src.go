package fixer

import (
	"context"
	"strings"

	"ImportFixer/internal/config"
	"ImportFixer/internal/domain"
	"ImportFixer/internal/dompatch"
)

const ImgSrcFromLinksName = "img-src-from-links"

// ImgSrcFromLinks fills empty image sources inside image links.
type ImgSrcFromLinks struct {
	run config.RunConfig
}

func NewImgSrcFromLinks(_ Env, run config.RunConfig) (Fixer, error) {
	return &ImgSrcFromLinks{run: run}, nil
}

func (f *ImgSrcFromLinks) Name() string { return ImgSrcFromLinksName }

func (f *ImgSrcFromLinks) Filter() domain.DocumentFilter { return f.run.Filter(`src=""`) }

func (f *ImgSrcFromLinks) PageSize() int { return pageSize(f.run.PageSize, linkPageSize) }

func (f *ImgSrcFromLinks) NeedsFix(doc domain.Document) bool {
	return strings.Contains(doc.Content, `src=""`) || strings.Contains(doc.Content, `src=''`)
}

func (f *ImgSrcFromLinks) Fix(_ context.Context, doc domain.Document) (Patch, error) {
	res := dompatch.FillEmptyImageSrcs(doc.Content)
	return Patch{Content: res.Content, Changes: res.Changes}, nil
}
