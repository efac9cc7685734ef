package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/internal/infrastructure/github"
)

var (
	// ErrInvalidDocument signals a stored catalog failing structural
	// validation (products missing or not an array).
	ErrInvalidDocument = errors.New("invalid catalog document")
)

// ContentsStore is the remote document store the catalog lives in.
type ContentsStore interface {
	GetFile(ctx context.Context, path string) (*github.File, error)
	PutFile(ctx context.Context, path string, content []byte, message, sha string) (*github.PutResult, error)
}

// Service reads and writes the catalog document. The document is never
// cached beyond a single call; every write re-reads the current revision
// marker first.
type Service struct {
	store ContentsStore
	path  string
	now   func() time.Time
}

// NewService creates a catalog service over the given store and file path.
func NewService(store ContentsStore, path string) *Service {
	if path == "" {
		path = "data.json"
	}
	return &Service{
		store: store,
		path:  path,
		now:   time.Now,
	}
}

// rawDocument accepts heterogeneous product records; each one is passed
// through Normalize before the document is returned.
type rawDocument struct {
	Products       []map[string]any `json:"products"`
	BannerSettings *BannerSettings  `json:"bannerSettings"`
	LastUpdated    string           `json:"lastUpdated"`
}

// Load fetches the catalog document. A missing document is not an error:
// a brand-new deployment has no catalog yet, so an empty one with default
// banner settings is synthesized. Every returned product is normalized, so
// the catalog is always fully keyed.
func (s *Service) Load(ctx context.Context) (*Document, error) {
	file, err := s.store.GetFile(ctx, s.path)
	if errors.Is(err, github.ErrNotFound) {
		banner := DefaultBannerSettings()
		return &Document{
			Products:       []Product{},
			BannerSettings: &banner,
			LastUpdated:    s.now().UTC().Format(time.RFC3339),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	var raw rawDocument
	if err := json.Unmarshal(file.Content, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if raw.Products == nil {
		return nil, fmt.Errorf("%w: products array is required", ErrInvalidDocument)
	}

	doc := &Document{
		Products:    make([]Product, 0, len(raw.Products)),
		LastUpdated: raw.LastUpdated,
	}
	for _, rp := range raw.Products {
		doc.Products = append(doc.Products, Normalize(rp))
	}

	if raw.BannerSettings != nil {
		doc.BannerSettings = raw.BannerSettings
	} else {
		banner := DefaultBannerSettings()
		doc.BannerSettings = &banner
	}
	return doc, nil
}

// Save replaces the entire catalog document. It reads the current revision
// marker, then submits a conditional write: the marker is included when the
// document exists and omitted to create it. A marker mismatch surfaces as
// github.ErrConflict; there is no retry loop here, the caller re-reads and
// retries. Partial updates are not supported.
func (s *Service) Save(ctx context.Context, products []Product, banner *BannerSettings) (*github.PutResult, error) {
	sha := ""
	file, err := s.store.GetFile(ctx, s.path)
	switch {
	case err == nil:
		sha = file.SHA
	case errors.Is(err, github.ErrNotFound):
		// No document yet; write creates it.
	default:
		return nil, fmt.Errorf("read current revision: %w", err)
	}

	if products == nil {
		products = []Product{}
	}
	if banner == nil {
		b := DefaultBannerSettings()
		banner = &b
	}

	stamp := s.now().UTC().Format(time.RFC3339)
	doc := Document{
		Products:       products,
		BannerSettings: banner,
		LastUpdated:    stamp,
	}

	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}

	result, err := s.store.PutFile(ctx, s.path, content, "Update products data - "+stamp, sha)
	if err != nil {
		return nil, fmt.Errorf("write catalog: %w", err)
	}
	return result, nil
}
