// Package miroir is the clone lifecycle and HTML mutation engine.
//
// A clone pairs a registry record (SQLite) with a markup artifact on disk.
// The engine keeps the two consistent: a record exists iff its artifact
// exists, tracked pixel/script state agrees with the stored markup, and
// partial failures during creation are compensated by deleting the orphan
// artifact.
//
// Usage:
//
//	svc, err := miroir.New(cfg, logger)
//	defer svc.Close()
//	page, err := svc.Clone(ctx, owner, "https://example.test")
//	svc.RegisterMCP(mcpServer)
package miroir

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/miroir/idgen"
	"github.com/hazyhaar/miroir/miroir/internal/blob"
	"github.com/hazyhaar/miroir/miroir/internal/dom"
	"github.com/hazyhaar/miroir/miroir/internal/fetch"
	"github.com/hazyhaar/miroir/miroir/internal/store"
	"github.com/hazyhaar/miroir/observability"
)

// Service is the mutation engine orchestrator.
type Service struct {
	fetcher *fetch.Fetcher
	store   *store.Store
	blobs   *blob.Store
	locks   *keyedLocks
	logger  *slog.Logger
	config  *Config
	newID   idgen.Generator
	events  *observability.EventLogger // optional
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEvents wires a business event logger. Event failures never propagate
// into engine operations.
func WithEvents(l *observability.EventLogger) ServiceOption {
	return func(s *Service) { s.events = l }
}

// WithIDGenerator overrides the clone/script id strategy (tests).
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(s *Service) { s.newID = gen }
}

// New creates the engine: opens the registry database and the artifact
// store under cfg.DataDir.
func New(cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("miroir: open registry: %w", err)
	}
	blobs, err := blob.New(cfg.DataDir)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("miroir: open artifact store: %w", err)
	}

	svc := &Service{
		fetcher: fetch.New(fetch.Config{
			Timeout:      cfg.FetchTimeout,
			MaxBytes:     cfg.FetchMaxBytes,
			UserAgent:    cfg.UserAgent,
			URLValidator: cfg.URLValidator,
		}),
		store:   st,
		blobs:   blobs,
		locks:   newKeyedLocks(),
		logger:  logger,
		config:  cfg,
		newID:   idgen.New,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// EnableEvents attaches a business event logger backed by the registry
// database. Mutating operations record domain events from then on.
func (s *Service) EnableEvents() error {
	l, err := observability.NewEventLogger(s.store.DB)
	if err != nil {
		return fmt.Errorf("miroir: event logger: %w", err)
	}
	s.events = l
	return nil
}

// Close shuts down the engine and closes the registry database.
func (s *Service) Close() error {
	return s.store.Close()
}

// Store returns the underlying registry for direct access (testing, admin).
func (s *Service) Store() *store.Store {
	return s.store
}

// Clone fetches url, stores the markup as a new artifact, and registers the
// clone, as one logical transaction. A registry failure after the artifact
// write deletes the artifact again: no orphan survives a failed create.
func (s *Service) Clone(ctx context.Context, owner, targetURL string) (*Page, error) {
	if err := validateCloneURL(targetURL); err != nil {
		return nil, err
	}

	markup, err := s.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, targetURL, err)
	}

	doc, err := dom.Parse(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrFetchFailed, err)
	}
	serialized, err := doc.Render()
	if err != nil {
		return nil, fmt.Errorf("%w: render: %v", ErrStorage, err)
	}

	id := s.newID()
	ref := blob.Ref(id)
	if err := s.blobs.Write(ref, serialized); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	rec := &store.Clone{
		ID:          id,
		OwnerID:     owner,
		SourceURL:   targetURL,
		ArtifactRef: ref,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		// Compensate: the artifact was written but the clone was never
		// registered. Remove it so nothing orphaned survives.
		if rmErr := s.blobs.Remove(ref); rmErr != nil {
			s.logger.Error("orphan artifact cleanup failed", "clone_id", id, "error", rmErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.logger.Info("clone created", "clone_id", id, "url", targetURL, "owner", owner)
	s.logEvent(ctx, "clone_created", id, owner, true, map[string]string{"url": targetURL})
	return s.pageView(rec), nil
}

// Get returns the public view of one clone.
func (s *Service) Get(ctx context.Context, owner, id string) (*Page, error) {
	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return s.pageView(rec), nil
}

// List returns the owner's clones, newest first. Records whose artifact has
// gone missing are purged and excluded: listing doubles as the
// self-healing consistency repair point.
func (s *Service) List(ctx context.Context, owner string) ([]*Page, error) {
	recs, err := s.store.ListActiveByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	pages := make([]*Page, 0, len(recs))
	for _, rec := range recs {
		if !s.blobs.Exists(rec.ArtifactRef) {
			s.logger.Warn("purging clone with missing artifact", "clone_id", rec.ID)
			if err := s.store.Purge(ctx, rec.ID); err != nil {
				s.logger.Error("purge failed", "clone_id", rec.ID, "error", err)
			}
			continue
		}
		pages = append(pages, s.pageView(rec))
	}
	return pages, nil
}

// Delete removes the artifact and the registry record. The registry delete
// is the authoritative one; a failed file removal is logged, not fatal.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.blobs.Remove(rec.ArtifactRef); err != nil {
		s.logger.Error("artifact removal failed", "clone_id", id, "error", err)
	}
	if err := s.store.Delete(ctx, id, owner); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	s.logEvent(ctx, "clone_deleted", id, owner, true, nil)
	return nil
}

// Status reports whether the clone's artifact is currently accessible.
// "error" is reserved and never produced here.
func (s *Service) Status(ctx context.Context, owner, id string) (string, error) {
	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return "", err
	}
	if s.blobs.Exists(rec.ArtifactRef) {
		return StatusActive, nil
	}
	return StatusInactive, nil
}

// ReplaceHTML overwrites the artifact wholesale with newMarkup, exactly as
// given: no structural validation, no reconciliation of tracked pixel or
// script state. The registry bookkeeping goes stale relative to the
// artifact until the user re-applies those mutations. This is the intended
// escape hatch, not a bug.
func (s *Service) ReplaceHTML(ctx context.Context, owner, id, newMarkup string) error {
	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if !s.blobs.Exists(rec.ArtifactRef) {
		return fmt.Errorf("%w: artifact missing", ErrNotFound)
	}
	if err := s.blobs.Write(rec.ArtifactRef, newMarkup); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return s.touch(ctx, id, owner)
}

// Refresh re-fetches the original source URL and rebuilds the artifact from
// registry state: the recorded pixel (if any) and every recorded script are
// re-applied, in registry order, onto the fresh markup. Manual edits made
// via ReplaceHTML or RewriteLink do not survive; here the registry is the
// source of truth.
func (s *Service) Refresh(ctx context.Context, owner, id string) error {
	// The lock spans the registry read as well as the artifact write: a
	// script committed concurrently must be in the rebuilt markup.
	unlock := s.locks.Lock(id)
	defer unlock()

	rec, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}

	markup, err := s.fetcher.Fetch(ctx, rec.SourceURL)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFetchFailed, rec.SourceURL, err)
	}
	doc, err := dom.Parse(markup)
	if err != nil {
		return fmt.Errorf("%w: parse: %v", ErrFetchFailed, err)
	}

	if rec.PixelID != nil {
		if err := injectPixelBlock(doc, *rec.PixelID); err != nil {
			return fmt.Errorf("%w: pixel: %v", ErrStorage, err)
		}
	}
	for _, sc := range rec.Scripts {
		appendMarkedScript(doc, sc.Location, sc.ID, sc.Content)
	}

	serialized, err := doc.Render()
	if err != nil {
		return fmt.Errorf("%w: render: %v", ErrStorage, err)
	}

	if err := s.blobs.Write(rec.ArtifactRef, serialized); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return s.touch(ctx, id, owner)
}

// IncrementViews bumps the clone's view counter. Called by the artifact
// serving path; the counter update is a single atomic SQL increment.
func (s *Service) IncrementViews(ctx context.Context, id string) {
	if err := s.store.IncrementViews(ctx, id); err != nil {
		s.logger.Error("view counter increment failed", "clone_id", id, "error", err)
	}
}

// ArtifactPath resolves a clone id to the filesystem path of its artifact,
// for the static serving route.
func (s *Service) ArtifactPath(id string) (string, error) {
	return s.blobs.Path(blob.Ref(id))
}

// --- internal helpers ---

// lookup fetches the registry record scoped to owner, mapping absence (or
// foreign ownership) to ErrNotFound.
func (s *Service) lookup(ctx context.Context, owner, id string) (*store.Clone, error) {
	rec, err := s.store.Get(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// readDoc loads and parses the clone's artifact.
func (s *Service) readDoc(ref string) (*dom.Doc, error) {
	markup, err := s.blobs.Read(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	doc, err := dom.Parse(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrStorage, err)
	}
	return doc, nil
}

// writeDoc serializes and stores the document.
func (s *Service) writeDoc(ref string, doc *dom.Doc) error {
	serialized, err := doc.Render()
	if err != nil {
		return fmt.Errorf("%w: render: %v", ErrStorage, err)
	}
	if err := s.blobs.Write(ref, serialized); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (s *Service) touch(ctx context.Context, id, owner string) error {
	if err := s.store.Touch(ctx, id, owner); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}

func (s *Service) pageView(rec *store.Clone) *Page {
	scripts := make([]Script, 0, len(rec.Scripts))
	for _, sc := range rec.Scripts {
		scripts = append(scripts, Script{
			ID:        sc.ID,
			Content:   sc.Content,
			Location:  sc.Location,
			CreatedAt: sc.CreatedAt,
		})
	}
	return &Page{
		ID:        rec.ID,
		URL:       rec.SourceURL,
		CloneURL:  strings.TrimSuffix(s.config.BaseURL, "/") + "/" + rec.ArtifactRef,
		PixelID:   rec.PixelID,
		Scripts:   scripts,
		ViewCount: rec.ViewCount,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.LastUpdated,
	}
}

func (s *Service) logEvent(ctx context.Context, eventType, entityID, owner string, success bool, details map[string]string) {
	if s.events == nil {
		return
	}
	var detailJSON string
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			detailJSON = string(b)
		}
	}
	s.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:   eventType,
		ServiceName: "miroir",
		EntityType:  "clone",
		EntityID:    entityID,
		UserID:      owner,
		Details:     detailJSON,
		Success:     success,
	})
}
