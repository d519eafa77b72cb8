package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"ImportFixer/internal/domain"
	"ImportFixer/internal/extract"
	"ImportFixer/internal/logging"
	"ImportFixer/internal/ports"
)

// Resolution is the outcome of resolving one image URL.
type Resolution struct {
	URL        string // address the content should use
	Asset      domain.AssetRecord
	Created    bool
	Repaired   bool
	Unresolved bool
}

// Changed reports whether the content must be rewritten.
func (r Resolution) Changed(original string) bool {
	return !r.Unresolved && r.URL != "" && r.URL != original
}

// AssetResolverDeps wires the collaborators of an AssetResolver.
type AssetResolverDeps struct {
	Store         ports.AssetStore
	Prober        ports.Prober
	UploadBaseURL string
	DryRun        bool
	Logger        *slog.Logger
}

// AssetResolver repairs image references whose file was stored under a
// transliterated name. It is scoped to one run: repairs and creations are
// remembered so each missing file is handled at most once.
type AssetResolver struct {
	store      ports.AssetStore
	prober     ports.Prober
	uploadBase string
	dryRun     bool
	logger     *slog.Logger

	resolved map[string]Resolution        // by image URL
	assets   map[string]domain.AssetRecord // by transliterated relative path
}

// NewAssetResolver builds a resolver for a single run.
func NewAssetResolver(deps AssetResolverDeps) *AssetResolver {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &AssetResolver{
		store:      deps.Store,
		prober:     deps.Prober,
		uploadBase: deps.UploadBaseURL,
		dryRun:     deps.DryRun,
		logger:     logger,
		resolved:   map[string]Resolution{},
		assets:     map[string]domain.AssetRecord{},
	}
}

// ResolveOrRepair makes sure img points at a file that exists:
//  1. the URL itself exists: nothing to do;
//  2. otherwise its transliterated variant is probed;
//  3. if that exists, the asset stored under the original file name is
//     moved to the transliterated path, or a new asset is created;
//  4. if neither exists the image is unresolved.
//
// Store failures are returned; probe failures count as "not found".
func (r *AssetResolver) ResolveOrRepair(ctx context.Context, parentID int64, img domain.ImageMatch) (Resolution, error) {
	if res, ok := r.resolved[img.URL]; ok {
		res.Created, res.Repaired = false, false
		return res, nil
	}

	res, err := r.resolve(ctx, parentID, img)
	if err != nil {
		return Resolution{}, err
	}
	r.resolved[img.URL] = res
	return res, nil
}

func (r *AssetResolver) resolve(ctx context.Context, parentID int64, img domain.ImageMatch) (Resolution, error) {
	if r.exists(ctx, img.URL) {
		return Resolution{URL: img.URL}, nil
	}

	translit := Transliterate(img.URL)
	if translit == img.URL || !r.exists(ctx, translit) {
		r.logger.Info("image not found under any name", "url", img.URL, "document_id", parentID)
		return Resolution{Unresolved: true}, nil
	}

	original := img.OriginalPath
	if original == "" {
		original = img.URL
	}
	relPath := r.relativePath(Transliterate(original))

	if asset, ok := r.assets[relPath]; ok {
		return Resolution{URL: translit, Asset: asset}, nil
	}

	asset, err := r.store.FindAssetByPathPattern(ctx, fileName(original))
	switch {
	case err == nil:
		return r.repair(ctx, asset, relPath, translit)
	case !errors.Is(err, domain.ErrNotFound):
		return Resolution{}, fmt.Errorf("find asset %s: %w", fileName(original), err)
	}

	existing, err := r.store.FindAssetByPath(ctx, relPath)
	switch {
	case err == nil:
		r.assets[relPath] = existing
		return Resolution{URL: translit, Asset: existing}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return Resolution{}, fmt.Errorf("find asset %s: %w", relPath, err)
	}

	return r.create(ctx, parentID, img, relPath, translit)
}

func (r *AssetResolver) repair(ctx context.Context, asset domain.AssetRecord, relPath, translit string) (Resolution, error) {
	newPath := path.Join(path.Dir(asset.FilePath), path.Base(relPath))
	newURL := r.uploadURL(newPath)

	if !r.dryRun {
		if err := r.store.UpdateAssetPath(ctx, asset.ID, newPath, newURL); err != nil {
			return Resolution{}, fmt.Errorf("update asset %d path: %w", asset.ID, err)
		}
	}
	r.logger.Info("asset path repaired", "asset_id", asset.ID, "from", asset.FilePath, "to", newPath, "dry_run", r.dryRun)

	asset.FilePath, asset.URL = newPath, newURL
	r.assets[relPath] = asset
	return Resolution{URL: translit, Asset: asset, Repaired: true}, nil
}

func (r *AssetResolver) create(ctx context.Context, parentID int64, img domain.ImageMatch, relPath, translit string) (Resolution, error) {
	fileURL := r.uploadURL(relPath)

	meta, err := r.prober.Describe(ctx, EncodeURL(fileURL))
	if err != nil {
		r.logger.Warn("cannot read asset metadata", "url", fileURL, "error", err)
	}

	draft := domain.AssetDraft{
		ParentID: parentID,
		URL:      fileURL,
		FilePath: relPath,
		Title:    titleFromFile(relPath),
		Alt:      img.Alt,
		Metadata: meta,
	}

	asset := domain.AssetRecord{ParentID: parentID, URL: fileURL, FilePath: relPath, Title: draft.Title, Alt: draft.Alt, MimeType: meta.MimeType}
	if !r.dryRun {
		asset, err = r.store.CreateAsset(ctx, draft)
		if err != nil {
			return Resolution{}, fmt.Errorf("create asset %s: %w", relPath, err)
		}
	}
	r.logger.Info("asset created", "asset_id", asset.ID, "path", relPath, "document_id", parentID, "dry_run", r.dryRun)

	r.assets[relPath] = asset
	return Resolution{URL: translit, Asset: asset, Created: true}, nil
}

// LookupBySource finds the asset an image source refers to, trying the
// un-resized original first.
func (r *AssetResolver) LookupBySource(ctx context.Context, src string) (domain.AssetRecord, bool, error) {
	original, _ := extract.OriginalPath(src)
	candidates := []string{original}
	if original != src {
		candidates = append(candidates, src)
	}

	for _, candidate := range candidates {
		asset, err := r.store.FindAssetByURL(ctx, candidate)
		if err == nil {
			return asset, true, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.AssetRecord{}, false, fmt.Errorf("find asset by url: %w", err)
		}
	}
	return domain.AssetRecord{}, false, nil
}

func (r *AssetResolver) exists(ctx context.Context, rawURL string) bool {
	ok, err := r.prober.Exists(ctx, EncodeURL(rawURL))
	if err != nil {
		r.logger.Warn("probe failed, treating as missing", "url", rawURL, "error", err)
		return false
	}
	return ok
}

// relativePath returns the decoded path of a file below the upload base.
func (r *AssetResolver) relativePath(fileURL string) string {
	base, _ := splitQuery(fileURL)
	rel := strings.TrimPrefix(base, r.uploadBase)
	if rel == base {
		if u, err := url.Parse(base); err == nil {
			rel = u.Path
		}
	}
	if decoded, err := url.PathUnescape(rel); err == nil {
		rel = decoded
	}
	return strings.TrimPrefix(rel, "/")
}

func (r *AssetResolver) uploadURL(relPath string) string {
	return strings.TrimRight(r.uploadBase, "/") + "/" + strings.TrimPrefix(relPath, "/")
}

func titleFromFile(relPath string) string {
	name := path.Base(relPath)
	name = strings.TrimSuffix(name, path.Ext(name))
	return strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(name))
}
