// Package storagetest provides an in-memory store for tests.
package storagetest

import (
	"context"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"ImportFixer/internal/domain"
	"ImportFixer/internal/permalink"
	"ImportFixer/internal/ports"
)

// Store keeps documents, assets and users in memory. Every write is
// recorded so tests can assert what a run would have changed.
type Store struct {
	mu sync.Mutex

	docs   map[int64]domain.Document
	assets []domain.AssetRecord
	users  map[string][]string
	links  *permalink.Builder

	nextAssetID int64

	// Fault injection.
	UpdateErrs map[int64]error
	ListErr    error

	// Call records.
	Updated       []int64
	ListCalls     int
	ClearCalls    int
	AssetUpdates  []domain.AssetRecord
	AssetsCreated []domain.AssetDraft
}

var _ ports.Store = (*Store)(nil)

// New returns an empty store whose canonical URLs live under siteURL.
func New(siteURL string) *Store {
	links, err := permalink.NewBuilder(siteURL, "/%postname%/")
	if err != nil {
		panic(err)
	}
	return &Store{
		docs:        map[int64]domain.Document{},
		users:       map[string][]string{},
		links:       links,
		nextAssetID: 1000,
		UpdateErrs:  map[int64]error{},
	}
}

// AddDocument inserts or replaces a document.
func (s *Store) AddDocument(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.PostType == "" {
		doc.PostType = "post"
	}
	if doc.Status == "" {
		doc.Status = "publish"
	}
	s.docs[doc.ID] = doc
}

// Document returns a stored document.
func (s *Store) Document(id int64) (domain.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// AddAsset inserts an asset; a zero id gets the next free one.
func (s *Store) AddAsset(asset domain.AssetRecord) domain.AssetRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if asset.ID == 0 {
		s.nextAssetID++
		asset.ID = s.nextAssetID
	}
	if asset.Permalink == "" {
		asset.Permalink = s.links.Asset(asset.ID)
	}
	s.assets = append(s.assets, asset)
	return asset
}

// Assets returns a copy of the stored assets.
func (s *Store) Assets() []domain.AssetRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.assets)
}

// Grant gives login the listed capabilities.
func (s *Store) Grant(login string, capabilities ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[login] = append(s.users[login], capabilities...)
}

// ListDocuments pages by id the same way the SQL store does.
func (s *Store) ListDocuments(_ context.Context, q domain.ListQuery) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.ListErr != nil {
		return nil, s.ListErr
	}

	ids := make([]int64, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var page []domain.Document
	for _, id := range ids {
		if id <= q.AfterID {
			continue
		}
		doc := s.docs[id]
		if !matches(doc, q.Filter) {
			continue
		}
		page = append(page, doc)
		if q.Limit > 0 && len(page) == q.Limit {
			break
		}
	}
	return page, nil
}

func matches(doc domain.Document, f domain.DocumentFilter) bool {
	if f.Search != "" && !strings.Contains(doc.Content, f.Search) {
		return false
	}
	if len(f.PostTypes) > 0 && !slices.Contains(f.PostTypes, doc.PostType) {
		return false
	}
	if f.After != nil && doc.PublishedAt.Before(*f.After) {
		return false
	}
	if f.Before != nil && doc.PublishedAt.After(*f.Before) {
		return false
	}
	return true
}

// UpdateDocument writes the content of a document.
func (s *Store) UpdateDocument(_ context.Context, id int64, upd domain.DocumentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.UpdateErrs[id]; err != nil {
		return err
	}
	doc, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if upd.Content != nil {
		doc.Content = *upd.Content
	}
	s.docs[id] = doc
	s.Updated = append(s.Updated, id)
	return nil
}

// FindDocumentsByMetadata matches metadata values exactly.
func (s *Store) FindDocumentsByMetadata(_ context.Context, key, value string, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, doc := range s.docs {
		if v, ok := doc.Meta[key]; ok && v == value {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// CanonicalURL builds the permalink of a stored document.
func (s *Store) CanonicalURL(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return s.links.Document(permalink.Ref{ID: doc.ID, Slug: doc.Slug, PostType: doc.PostType, PublishedAt: doc.PublishedAt}), nil
}

// ClearCaches only counts calls; nothing is cached.
func (s *Store) ClearCaches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ClearCalls++
}

// FindAssetByPathPattern matches assets whose file name equals filename.
func (s *Store) FindAssetByPathPattern(_ context.Context, filename string) (domain.AssetRecord, error) {
	return s.findAsset(func(a domain.AssetRecord) bool { return path.Base(a.FilePath) == filename })
}

// FindAssetByPath matches the relative file path exactly.
func (s *Store) FindAssetByPath(_ context.Context, p string) (domain.AssetRecord, error) {
	return s.findAsset(func(a domain.AssetRecord) bool { return a.FilePath == p })
}

// FindAssetByURL matches the stored file URL exactly.
func (s *Store) FindAssetByURL(_ context.Context, url string) (domain.AssetRecord, error) {
	return s.findAsset(func(a domain.AssetRecord) bool { return a.URL == url })
}

func (s *Store) findAsset(match func(domain.AssetRecord) bool) (domain.AssetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assets {
		if match(a) {
			return a, nil
		}
	}
	return domain.AssetRecord{}, domain.ErrNotFound
}

// UpdateAssetPath moves an asset to a new file.
func (s *Store) UpdateAssetPath(_ context.Context, id int64, p, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assets {
		if s.assets[i].ID == id {
			s.assets[i].FilePath = p
			s.assets[i].URL = url
			s.AssetUpdates = append(s.AssetUpdates, s.assets[i])
			return nil
		}
	}
	return domain.ErrNotFound
}

// CreateAsset stores a new asset.
func (s *Store) CreateAsset(_ context.Context, draft domain.AssetDraft) (domain.AssetRecord, error) {
	s.mu.Lock()
	s.AssetsCreated = append(s.AssetsCreated, draft)
	s.mu.Unlock()

	return s.AddAsset(domain.AssetRecord{
		ParentID: draft.ParentID,
		URL:      draft.URL,
		FilePath: draft.FilePath,
		Title:    draft.Title,
		Alt:      draft.Alt,
		MimeType: draft.Metadata.MimeType,
	}), nil
}

// UserCan reports whether login holds capability.
func (s *Store) UserCan(_ context.Context, login, capability string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.users[login], capability), nil
}

// Prober answers existence checks from a fixed set of URLs.
type Prober struct {
	mu       sync.Mutex
	existing map[string]bool
	Errs     map[string]error
	Meta     domain.AssetMetadata
	Probed   []string
}

var _ ports.Prober = (*Prober)(nil)

// NewProber reports every listed URL as existing.
func NewProber(existing ...string) *Prober {
	p := &Prober{existing: map[string]bool{}, Errs: map[string]error{}}
	for _, u := range existing {
		p.existing[u] = true
	}
	return p
}

// Exists reports whether url was registered.
func (p *Prober) Exists(_ context.Context, url string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Probed = append(p.Probed, url)
	if err := p.Errs[url]; err != nil {
		return false, err
	}
	return p.existing[url], nil
}

// Describe returns the configured metadata.
func (p *Prober) Describe(_ context.Context, url string) (domain.AssetMetadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.Errs[url]; err != nil {
		return domain.AssetMetadata{}, err
	}
	return p.Meta, nil
}
