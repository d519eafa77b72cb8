package fixer

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"ImportFixer/internal/config"
	"ImportFixer/internal/domain"
	"ImportFixer/internal/infrastructure/storage/storagetest"
)

const uploads = "https://new.test/wp-content/uploads/"

func newEnv(store *storagetest.Store, prober *storagetest.Prober) Env {
	return Env{Store: store, Prober: prober, UploadBaseURL: uploads}
}

func runConfig(mutate func(*config.RunConfig)) config.RunConfig {
	run := config.RunConfig{User: "admin", OldDomain: "http://old.test"}
	if mutate != nil {
		mutate(&run)
	}
	return run.Normalize(config.FixerDefaults{})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := Default()
	var names []string
	for _, info := range r.List() {
		names = append(names, info.Name)
	}
	require.Equal(t, []string{"image-hrefs", "img-src-from-links", "internal-links", "missing-images"}, names)

	env := newEnv(storagetest.New("https://new.test"), storagetest.NewProber())
	f, err := r.Build("internal-links", env, runConfig(nil))
	require.NoError(t, err)
	require.Equal(t, "internal-links", f.Name())
	require.Equal(t, 50, f.PageSize())

	_, err = r.Build("unknown", env, runConfig(nil))
	require.ErrorIs(t, err, config.ErrInvalidRunConfig)

	_, err = r.Build("internal-links", env, runConfig(func(c *config.RunConfig) { c.OldDomain = "" }))
	require.ErrorIs(t, err, config.ErrInvalidRunConfig)
}

func TestDefaultPageSizes(t *testing.T) {
	t.Parallel()

	env := newEnv(storagetest.New("https://new.test"), storagetest.NewProber())
	want := map[string]int{"internal-links": 50, "img-src-from-links": 50, "image-hrefs": 100, "missing-images": 100}
	for name, size := range want {
		f, err := Default().Build(name, env, runConfig(nil))
		require.NoError(t, err)
		require.Equal(t, size, f.PageSize(), name)

		f, err = Default().Build(name, env, runConfig(func(c *config.RunConfig) { c.PageSize = 7 }))
		require.NoError(t, err)
		require.Equal(t, 7, f.PageSize(), name)
	}
}

func TestInternalLinksFix(t *testing.T) {
	t.Parallel()

	store := storagetest.New("https://new.test")
	store.AddDocument(domain.Document{ID: 10, Slug: "first", Meta: map[string]string{"_original_url": "http://old.test/2014/first/"}})
	store.AddDocument(domain.Document{ID: 11, Slug: "second", Meta: map[string]string{"_original_url": "http://old.test/second/"}})

	f, err := NewInternalLinks(newEnv(store, nil), runConfig(nil))
	require.NoError(t, err)
	require.Equal(t, "old.test", f.Filter().Search)

	doc := domain.Document{ID: 1, Content: `<p><a href='http://old.test/2014/first/'>one</a> ` +
		`<a href="http://old.test/second/">two</a> <a href="http://old.test/second/">again</a> ` +
		`<a href="http://old.test/gone/">gone</a> <a href="https://elsewhere.test/">out</a></p>`}
	require.True(t, f.NeedsFix(doc))

	patch, err := f.Fix(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, `<p><a href="https://new.test/first/">one</a> `+
		`<a href="https://new.test/second/">two</a> <a href="https://new.test/second/">again</a> `+
		`<a href="http://old.test/gone/">gone</a> <a href="https://elsewhere.test/">out</a></p>`, patch.Content)
	require.Len(t, patch.Changes, 2)
	require.True(t, patch.Changed(doc.Content))
	require.Equal(t, []domain.Unresolved{{DocumentID: 1, Item: "http://old.test/gone/", Reason: "no single document imported from this url"}}, patch.Unresolved)
}

func TestInternalLinksNeedsFix(t *testing.T) {
	t.Parallel()

	f, err := NewInternalLinks(newEnv(storagetest.New("https://new.test"), nil), runConfig(nil))
	require.NoError(t, err)
	require.False(t, f.NeedsFix(domain.Document{Content: `<a href="https://new.test/">x</a>`}))

	patch, err := f.Fix(context.Background(), domain.Document{Content: `<p>old.test mentioned but not linked</p>`})
	require.NoError(t, err)
	require.False(t, patch.Changed(`<p>old.test mentioned but not linked</p>`))
}

func TestImgSrcFromLinks(t *testing.T) {
	t.Parallel()

	f, err := NewImgSrcFromLinks(Env{}, runConfig(nil))
	require.NoError(t, err)
	require.Equal(t, `src=""`, f.Filter().Search)

	doc := domain.Document{Content: `<a href="https://x.test/a.jpg"><img src="" alt="a"></a>`}
	require.True(t, f.NeedsFix(doc))
	require.True(t, f.NeedsFix(domain.Document{Content: `<img src=''>`}))
	require.False(t, f.NeedsFix(domain.Document{Content: `<img src="a.jpg">`}))

	patch, err := f.Fix(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, `<a href="https://x.test/a.jpg"><img src="https://x.test/a.jpg" alt="a"></a>`, patch.Content)
	require.True(t, patch.Changed(doc.Content))
}

func TestImageHrefs(t *testing.T) {
	t.Parallel()

	store := storagetest.New("https://new.test")
	asset := store.AddAsset(domain.AssetRecord{URL: uploads + "2020/photo.jpg", FilePath: "2020/photo.jpg"})

	f, err := NewImageHrefs(newEnv(store, storagetest.NewProber()), runConfig(nil))
	require.NoError(t, err)

	doc := domain.Document{ID: 2, Content: `<a href="http://old.test/photo/"><img class="size-medium wp-image-9" src="` +
		uploads + `2020/photo-300x200.jpg"></a>`}
	require.True(t, f.NeedsFix(doc))

	patch, err := f.Fix(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, `<a href="https://new.test/?attachment_id=`+itoa(asset.ID)+`"><img class="size-medium wp-image-`+itoa(asset.ID)+`" src="`+
		uploads+`2020/photo-300x200.jpg"></a>`, patch.Content)

	again, err := f.Fix(context.Background(), domain.Document{ID: 2, Content: patch.Content})
	require.NoError(t, err)
	require.False(t, again.Changed(patch.Content))
}

func TestMissingImages(t *testing.T) {
	t.Parallel()

	store := storagetest.New("https://new.test")
	store.AddAsset(domain.AssetRecord{FilePath: "2020/01/café.jpg", URL: uploads + "2020/01/café.jpg"})
	prober := storagetest.NewProber(uploads+"2020/01/cafe-300x200.jpg", uploads+"2020/01/ok.jpg")

	f, err := NewMissingImages(newEnv(store, prober), runConfig(nil))
	require.NoError(t, err)
	require.Equal(t, uploads, f.Filter().Search)

	doc := domain.Document{ID: 5, Content: `<img class="wp-image-3" src="` + uploads + `2020/01/café-300x200.jpg">` +
		`<img src="` + uploads + `2020/01/ok.jpg"><img src="` + uploads + `2020/01/lost.png">`}
	require.True(t, f.NeedsFix(doc))

	patch, err := f.Fix(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, `<img class="wp-image-3" src="`+uploads+`2020/01/cafe-300x200.jpg">`+
		`<img src="`+uploads+`2020/01/ok.jpg"><img src="`+uploads+`2020/01/lost.png">`, patch.Content)
	require.Equal(t, 1, patch.AssetsRepaired)
	require.Zero(t, patch.AssetsCreated)
	require.Len(t, patch.Unresolved, 1)
	require.Equal(t, uploads+"2020/01/lost.png", patch.Unresolved[0].Item)
	require.Len(t, store.AssetUpdates, 1)
}

func TestMissingImagesRequiresUploadBase(t *testing.T) {
	t.Parallel()

	_, err := NewMissingImages(Env{}, runConfig(nil))
	require.ErrorIs(t, err, config.ErrInvalidRunConfig)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
