package ports

import (
	"context"

	"ImportFixer/internal/domain"
)

// DocumentStore pages through stored documents and writes corrections back.
type DocumentStore interface {
	ListDocuments(ctx context.Context, q domain.ListQuery) ([]domain.Document, error)
	UpdateDocument(ctx context.Context, id int64, upd domain.DocumentUpdate) error
	FindDocumentsByMetadata(ctx context.Context, key, value string, limit int) ([]int64, error)
	CanonicalURL(ctx context.Context, id int64) (string, error)
	// ClearCaches drops any process-local lookup caches held by the store.
	ClearCaches()
}

// AssetStore looks up, repairs and creates asset records.
type AssetStore interface {
	FindAssetByPathPattern(ctx context.Context, filename string) (domain.AssetRecord, error)
	FindAssetByPath(ctx context.Context, path string) (domain.AssetRecord, error)
	FindAssetByURL(ctx context.Context, url string) (domain.AssetRecord, error)
	UpdateAssetPath(ctx context.Context, id int64, path, url string) error
	CreateAsset(ctx context.Context, draft domain.AssetDraft) (domain.AssetRecord, error)
}

// Authorizer checks operator privileges before a run starts.
type Authorizer interface {
	UserCan(ctx context.Context, login, capability string) (bool, error)
}

// Store is the full storage surface the application needs.
type Store interface {
	DocumentStore
	AssetStore
	Authorizer
}

// Prober checks remote existence of files and reads their metadata.
// Exists reports transport failures as (false, err).
type Prober interface {
	Exists(ctx context.Context, url string) (bool, error)
	Describe(ctx context.Context, url string) (domain.AssetMetadata, error)
}
