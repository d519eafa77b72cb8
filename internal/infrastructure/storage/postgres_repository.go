package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ImportFixer/internal/domain"
	"ImportFixer/internal/permalink"
	"ImportFixer/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var documentColumns = []string{"id", "slug", "post_type", "status", "content", "published_at", "modified_at"}

var assetColumns = []string{"id", "parent_id", "url", "file_path", "title", "alt", "mime_type"}

// PostgresRepository stores documents, assets and operators in Postgres.
type PostgresRepository struct {
	db    *sqlx.DB
	links *permalink.Builder

	mu        sync.Mutex
	canonical map[int64]string
}

var _ ports.Store = (*PostgresRepository)(nil)

// Open connects to Postgres through lib/pq.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sqlx handle and the site permalink builder.
func NewPostgresRepository(db *sqlx.DB, links *permalink.Builder) *PostgresRepository {
	return &PostgresRepository{db: db, links: links, canonical: map[int64]string{}}
}

type documentRow struct {
	ID          int64     `db:"id"`
	Slug        string    `db:"slug"`
	PostType    string    `db:"post_type"`
	Status      string    `db:"status"`
	Content     string    `db:"content"`
	PublishedAt time.Time `db:"published_at"`
	ModifiedAt  time.Time `db:"modified_at"`
}

type metaRow struct {
	DocumentID int64  `db:"document_id"`
	Key        string `db:"meta_key"`
	Value      string `db:"meta_value"`
}

type assetRow struct {
	ID       int64          `db:"id"`
	ParentID sql.NullInt64  `db:"parent_id"`
	URL      string         `db:"url"`
	FilePath string         `db:"file_path"`
	Title    string         `db:"title"`
	Alt      string         `db:"alt"`
	MimeType sql.NullString `db:"mime_type"`
}

// ListDocuments returns the next page of documents after q.AfterID.
func (r *PostgresRepository) ListDocuments(ctx context.Context, q domain.ListQuery) ([]domain.Document, error) {
	builder := psql.Select(documentColumns...).
		From("documents").
		Where(sq.Gt{"id": q.AfterID}).
		OrderBy("id")

	f := q.Filter
	if f.Search != "" {
		builder = builder.Where(sq.Like{"content": "%" + escapeLike(f.Search) + "%"})
	}
	if len(f.PostTypes) > 0 {
		builder = builder.Where(sq.Eq{"post_type": f.PostTypes})
	}
	if f.After != nil {
		builder = builder.Where(sq.GtOrEq{"published_at": *f.After})
	}
	if f.Before != nil {
		builder = builder.Where(sq.LtOrEq{"published_at": *f.Before})
	}
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	meta, err := r.loadMeta(ctx, ids)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, len(rows))
	for i, row := range rows {
		docs[i] = domain.Document{
			ID:          row.ID,
			Slug:        row.Slug,
			PostType:    row.PostType,
			Status:      row.Status,
			Content:     row.Content,
			PublishedAt: row.PublishedAt,
			ModifiedAt:  row.ModifiedAt,
			Meta:        meta[row.ID],
		}
	}
	return docs, nil
}

func (r *PostgresRepository) loadMeta(ctx context.Context, ids []int64) (map[int64]map[string]string, error) {
	query := `SELECT document_id, meta_key, meta_value FROM document_meta WHERE document_id = ANY($1) ORDER BY id`

	var rows []metaRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("query document meta: %w", err)
	}

	result := make(map[int64]map[string]string, len(ids))
	for _, row := range rows {
		if result[row.DocumentID] == nil {
			result[row.DocumentID] = map[string]string{}
		}
		// First value wins, like get_post_meta(..., true).
		if _, ok := result[row.DocumentID][row.Key]; !ok {
			result[row.DocumentID][row.Key] = row.Value
		}
	}
	return result, nil
}

// UpdateDocument writes the set fields of upd.
func (r *PostgresRepository) UpdateDocument(ctx context.Context, id int64, upd domain.DocumentUpdate) error {
	if upd.Content == nil {
		return nil
	}

	query, args, err := psql.Update("documents").
		Set("content", *upd.Content).
		Set("modified_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update document %d: %w", id, domain.ErrNotFound)
	}

	r.mu.Lock()
	delete(r.canonical, id)
	r.mu.Unlock()
	return nil
}

// FindDocumentsByMetadata returns up to limit ids whose key entry equals value.
func (r *PostgresRepository) FindDocumentsByMetadata(ctx context.Context, key, value string, limit int) ([]int64, error) {
	builder := psql.Select("document_id").
		Distinct().
		From("document_meta").
		Where(sq.Eq{"meta_key": key, "meta_value": value}).
		OrderBy("document_id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build meta query: %w", err)
	}

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("query document meta: %w", err)
	}
	return ids, nil
}

// CanonicalURL returns the permalink of a document. Results are cached
// until ClearCaches is called.
func (r *PostgresRepository) CanonicalURL(ctx context.Context, id int64) (string, error) {
	r.mu.Lock()
	cached, ok := r.canonical[id]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	var row documentRow
	query := `SELECT id, slug, post_type, published_at FROM documents WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("load document %d: %w", id, err)
	}

	link := r.links.Document(permalink.Ref{
		ID:          row.ID,
		Slug:        row.Slug,
		PostType:    row.PostType,
		PublishedAt: row.PublishedAt,
	})

	r.mu.Lock()
	r.canonical[id] = link
	r.mu.Unlock()
	return link, nil
}

// ClearCaches drops cached permalinks.
func (r *PostgresRepository) ClearCaches() {
	r.mu.Lock()
	r.canonical = map[int64]string{}
	r.mu.Unlock()
}

// FindAssetByPathPattern finds the first asset whose file name is filename,
// in any upload directory.
func (r *PostgresRepository) FindAssetByPathPattern(ctx context.Context, filename string) (domain.AssetRecord, error) {
	return r.findAsset(ctx, sq.Or{
		sq.Eq{"file_path": filename},
		sq.Like{"file_path": "%/" + escapeLike(filename)},
	})
}

// FindAssetByPath finds an asset by its relative file path.
func (r *PostgresRepository) FindAssetByPath(ctx context.Context, path string) (domain.AssetRecord, error) {
	return r.findAsset(ctx, sq.Eq{"file_path": path})
}

// FindAssetByURL finds an asset by its file URL.
func (r *PostgresRepository) FindAssetByURL(ctx context.Context, url string) (domain.AssetRecord, error) {
	return r.findAsset(ctx, sq.Eq{"url": url})
}

func (r *PostgresRepository) findAsset(ctx context.Context, pred sq.Sqlizer) (domain.AssetRecord, error) {
	query, args, err := psql.Select(assetColumns...).
		From("assets").
		Where(pred).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.AssetRecord{}, fmt.Errorf("build asset query: %w", err)
	}

	var row assetRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AssetRecord{}, domain.ErrNotFound
		}
		return domain.AssetRecord{}, fmt.Errorf("query asset: %w", err)
	}
	return r.toAsset(row), nil
}

// UpdateAssetPath points an asset at a new file.
func (r *PostgresRepository) UpdateAssetPath(ctx context.Context, id int64, path, url string) error {
	query, args, err := psql.Update("assets").
		Set("file_path", path).
		Set("url", url).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build asset update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update asset %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update asset %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CreateAsset inserts a new asset and returns it with its id.
func (r *PostgresRepository) CreateAsset(ctx context.Context, draft domain.AssetDraft) (domain.AssetRecord, error) {
	metadata, err := json.Marshal(draft.Metadata)
	if err != nil {
		return domain.AssetRecord{}, fmt.Errorf("encode asset metadata: %w", err)
	}

	var parent sql.NullInt64
	if draft.ParentID > 0 {
		parent = sql.NullInt64{Int64: draft.ParentID, Valid: true}
	}

	query, args, err := psql.Insert("assets").
		Columns("parent_id", "url", "file_path", "title", "alt", "mime_type", "metadata").
		Values(parent, draft.URL, draft.FilePath, draft.Title, draft.Alt, draft.Metadata.MimeType, metadata).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.AssetRecord{}, fmt.Errorf("build asset insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return domain.AssetRecord{}, fmt.Errorf("insert asset %s: %w", draft.FilePath, err)
	}

	return domain.AssetRecord{
		ID:        id,
		ParentID:  draft.ParentID,
		URL:       draft.URL,
		FilePath:  draft.FilePath,
		Title:     draft.Title,
		Alt:       draft.Alt,
		MimeType:  draft.Metadata.MimeType,
		Permalink: r.links.Asset(id),
	}, nil
}

// UserCan reports whether login holds capability. Unknown users hold none.
func (r *PostgresRepository) UserCan(ctx context.Context, login, capability string) (bool, error) {
	query, args, err := psql.Select("1").
		From("users").
		Where(sq.Eq{"login": login}).
		Where("? = ANY(capabilities)", capability).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build capability query: %w", err)
	}

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query capabilities of %s: %w", login, err)
	}
	return true, nil
}

func (r *PostgresRepository) toAsset(row assetRow) domain.AssetRecord {
	return domain.AssetRecord{
		ID:        row.ID,
		ParentID:  row.ParentID.Int64,
		URL:       row.URL,
		FilePath:  row.FilePath,
		Title:     row.Title,
		Alt:       row.Alt,
		MimeType:  row.MimeType.String,
		Permalink: r.links.Asset(row.ID),
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
