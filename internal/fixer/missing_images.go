package fixer

import (
	"context"
	"fmt"
	"strings"

	"ImportFixer/internal/config"
	"ImportFixer/internal/domain"
	"ImportFixer/internal/extract"
	"ImportFixer/internal/resolver"
)

const MissingImagesName = "missing-images"

// MissingImages repairs images whose file only exists under its
// transliterated name.
type MissingImages struct {
	run        config.RunConfig
	uploadBase string
	assets     *resolver.AssetResolver
}

func NewMissingImages(env Env, run config.RunConfig) (Fixer, error) {
	if env.UploadBaseURL == "" {
		return nil, fmt.Errorf("%w: upload base url is not configured", config.ErrInvalidRunConfig)
	}
	return &MissingImages{
		run:        run,
		uploadBase: env.UploadBaseURL,
		assets: resolver.NewAssetResolver(resolver.AssetResolverDeps{
			Store:         env.Store,
			Prober:        env.Prober,
			UploadBaseURL: env.UploadBaseURL,
			DryRun:        run.DryRun,
			Logger:        env.Logger,
		}),
	}, nil
}

func (f *MissingImages) Name() string { return MissingImagesName }

func (f *MissingImages) Filter() domain.DocumentFilter { return f.run.Filter(f.uploadBase) }

func (f *MissingImages) PageSize() int { return pageSize(f.run.PageSize, imagePageSize) }

func (f *MissingImages) NeedsFix(doc domain.Document) bool {
	return strings.Contains(doc.Content, f.uploadBase)
}

func (f *MissingImages) Fix(ctx context.Context, doc domain.Document) (Patch, error) {
	patch := Patch{Content: doc.Content}

	for _, img := range extract.ExtractImages(doc.Content, f.uploadBase) {
		res, err := f.assets.ResolveOrRepair(ctx, doc.ID, img)
		if err != nil {
			return Patch{}, err
		}

		switch {
		case res.Unresolved:
			patch.Unresolved = append(patch.Unresolved, domain.Unresolved{
				DocumentID: doc.ID,
				Item:       img.URL,
				Reason:     "file not found under its own or transliterated name",
			})
			continue
		case res.Created:
			patch.AssetsCreated++
		case res.Repaired:
			patch.AssetsRepaired++
		}

		if res.Changed(img.URL) {
			patch.Content = strings.ReplaceAll(patch.Content, img.URL, res.URL)
			patch.Changes = append(patch.Changes, domain.Change{From: img.URL, To: res.URL, Note: "image file"})
		}
	}

	return patch, nil
}
