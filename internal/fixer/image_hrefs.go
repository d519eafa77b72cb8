package fixer

import (
	"context"
	"strings"

	"ImportFixer/internal/config"
	"ImportFixer/internal/domain"
	"ImportFixer/internal/dompatch"
	"ImportFixer/internal/resolver"
)

const (
	ImageHrefsName = "image-hrefs"
	imagePageSize  = 100
)

// ImageHrefs points anchors that wrap an image at that image's asset.
type ImageHrefs struct {
	run    config.RunConfig
	assets *resolver.AssetResolver
}

func NewImageHrefs(env Env, run config.RunConfig) (Fixer, error) {
	return &ImageHrefs{
		run: run,
		assets: resolver.NewAssetResolver(resolver.AssetResolverDeps{
			Store:         env.Store,
			Prober:        env.Prober,
			UploadBaseURL: env.UploadBaseURL,
			DryRun:        run.DryRun,
			Logger:        env.Logger,
		}),
	}, nil
}

func (f *ImageHrefs) Name() string { return ImageHrefsName }

func (f *ImageHrefs) Filter() domain.DocumentFilter { return f.run.Filter("<img") }

func (f *ImageHrefs) PageSize() int { return pageSize(f.run.PageSize, imagePageSize) }

func (f *ImageHrefs) NeedsFix(doc domain.Document) bool {
	lower := strings.ToLower(doc.Content)
	return strings.Contains(lower, "<a") && strings.Contains(lower, "<img")
}

func (f *ImageHrefs) Fix(ctx context.Context, doc domain.Document) (Patch, error) {
	res, err := dompatch.RetargetImageHrefs(ctx, doc.Content, f.assets.LookupBySource, f.run.ReplaceWith)
	if err != nil {
		return Patch{}, err
	}
	return Patch{Content: res.Content, Changes: res.Changes}, nil
}
