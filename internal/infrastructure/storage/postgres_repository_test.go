package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"ImportFixer/internal/domain"
	"ImportFixer/internal/permalink"
)

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	links, err := permalink.NewBuilder("https://site.test", "/%year%/%postname%/")
	require.NoError(t, err)

	return NewPostgresRepository(sqlx.NewDb(db, "postgres"), links), mock
}

func TestListDocumentsAppliesFilterAndLoadsMeta(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	published := time.Date(2020, 3, 4, 10, 0, 0, 0, time.UTC)
	after := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, slug, post_type, status, content, published_at, modified_at FROM documents " +
			"WHERE id > $1 AND content LIKE $2 AND post_type IN ($3,$4) AND published_at >= $5 ORDER BY id LIMIT 50")).
		WithArgs(int64(120), `%50\%\_off%`, "post", "page", after).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "post_type", "status", "content", "published_at", "modified_at"}).
			AddRow(int64(121), "hello", "post", "publish", "<p>50%_off</p>", published, published).
			AddRow(int64(130), "about", "page", "publish", "<p>50%_off</p>", published, published))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT document_id, meta_key, meta_value FROM document_meta WHERE document_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"document_id", "meta_key", "meta_value"}).
			AddRow(int64(121), "_original_url", "https://old.test/hello/").
			AddRow(int64(121), "_original_url", "https://old.test/ignored/"))

	docs, err := repo.ListDocuments(context.Background(), domain.ListQuery{
		Filter: domain.DocumentFilter{
			Search:    "50%_off",
			PostTypes: []string{"post", "page"},
			After:     &after,
		},
		AfterID: 120,
		Limit:   50,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, int64(121), docs[0].ID)
	require.Equal(t, "https://old.test/hello/", docs[0].Meta["_original_url"])
	require.Nil(t, docs[1].Meta)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDocumentsEmptyPageSkipsMeta(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id > \\$1 ORDER BY id LIMIT 100").
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	docs, err := repo.ListDocuments(context.Background(), domain.ListQuery{Limit: 100})
	require.NoError(t, err)
	require.Empty(t, docs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDocumentsQueryError(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	mock.ExpectQuery("SELECT (.+) FROM documents").WillReturnError(sql.ErrConnDone)

	_, err := repo.ListDocuments(context.Background(), domain.ListQuery{Limit: 10})
	require.ErrorIs(t, err, sql.ErrConnDone)
}

func TestUpdateDocument(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	content := `<a href="https://new.test/x/">x</a>`

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET content = $1, modified_at = NOW() WHERE id = $2")).
		WithArgs(content, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents").
		WithArgs(content, int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateDocument(context.Background(), 5, domain.DocumentUpdate{Content: &content}))
	err := repo.UpdateDocument(context.Background(), 6, domain.DocumentUpdate{Content: &content})
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Nothing to write.
	require.NoError(t, repo.UpdateDocument(context.Background(), 7, domain.DocumentUpdate{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindDocumentsByMetadata(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT DISTINCT document_id FROM document_meta WHERE meta_key = $1 AND meta_value = $2 ORDER BY document_id LIMIT 2")).
		WithArgs("_original_url", "https://old.test/a/").
		WillReturnRows(sqlmock.NewRows([]string{"document_id"}).AddRow(int64(3)).AddRow(int64(9)))

	ids, err := repo.FindDocumentsByMetadata(context.Background(), "_original_url", "https://old.test/a/", 2)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 9}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCanonicalURLIsCachedUntilCleared(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	published := time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "slug", "post_type", "published_at"}).
			AddRow(int64(4), "hello-world", "post", published)
	}

	mock.ExpectQuery("SELECT id, slug, post_type, published_at FROM documents WHERE id = \\$1").
		WithArgs(int64(4)).WillReturnRows(row())
	mock.ExpectQuery("SELECT id, slug, post_type, published_at FROM documents WHERE id = \\$1").
		WithArgs(int64(4)).WillReturnRows(row())
	mock.ExpectQuery("SELECT id, slug, post_type, published_at FROM documents WHERE id = \\$1").
		WithArgs(int64(8)).WillReturnError(sql.ErrNoRows)

	ctx := context.Background()
	for range 2 {
		link, err := repo.CanonicalURL(ctx, 4)
		require.NoError(t, err)
		require.Equal(t, "https://site.test/2019/hello-world/", link)
	}

	repo.ClearCaches()
	_, err := repo.CanonicalURL(ctx, 4)
	require.NoError(t, err)

	_, err = repo.CanonicalURL(ctx, 8)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAssetByPathPattern(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	columns := []string{"id", "parent_id", "url", "file_path", "title", "alt", "mime_type"}

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, parent_id, url, file_path, title, alt, mime_type FROM assets WHERE (file_path = $1 OR file_path LIKE $2) ORDER BY id LIMIT 1")).
		WithArgs("café_1.jpg", `%/café\_1.jpg`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(11), nil, "https://site.test/up/2020/café_1.jpg", "2020/café_1.jpg", "café", "", "image/jpeg"))
	mock.ExpectQuery("FROM assets WHERE").WillReturnError(sql.ErrNoRows)

	asset, err := repo.FindAssetByPathPattern(context.Background(), "café_1.jpg")
	require.NoError(t, err)
	require.Equal(t, int64(11), asset.ID)
	require.Zero(t, asset.ParentID)
	require.Equal(t, "2020/café_1.jpg", asset.FilePath)
	require.Equal(t, "https://site.test/?attachment_id=11", asset.Permalink)

	_, err = repo.FindAssetByURL(context.Background(), "https://site.test/none.jpg")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAssetPath(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET file_path = $1, url = $2 WHERE id = $3")).
		WithArgs("2020/cafe.jpg", "https://site.test/up/2020/cafe.jpg", int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateAssetPath(context.Background(), 11, "2020/cafe.jpg", "https://site.test/up/2020/cafe.jpg"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAsset(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO assets (parent_id,url,file_path,title,alt,mime_type,metadata) VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id")).
		WithArgs(int64(3), "https://site.test/up/cafe.jpg", "cafe.jpg", "cafe", "Coffee", "image/jpeg", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery("INSERT INTO assets").WillReturnError(errors.New("duplicate key"))

	draft := domain.AssetDraft{
		ParentID: 3,
		URL:      "https://site.test/up/cafe.jpg",
		FilePath: "cafe.jpg",
		Title:    "cafe",
		Alt:      "Coffee",
		Metadata: domain.AssetMetadata{MimeType: "image/jpeg", Width: 10, Height: 10},
	}
	asset, err := repo.CreateAsset(context.Background(), draft)
	require.NoError(t, err)
	require.Equal(t, int64(42), asset.ID)
	require.Equal(t, "https://site.test/?attachment_id=42", asset.Permalink)

	_, err = repo.CreateAsset(context.Background(), draft)
	require.ErrorContains(t, err, "duplicate key")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCan(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepository(t)
	query := regexp.QuoteMeta("SELECT 1 FROM users WHERE login = $1 AND $2 = ANY(capabilities)")
	mock.ExpectQuery(query).WithArgs("admin", "import").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(query).WithArgs("editor", "import").
		WillReturnError(sql.ErrNoRows)

	ok, err := repo.UserCan(context.Background(), "admin", "import")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.UserCan(context.Background(), "editor", "import")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()
	require.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
