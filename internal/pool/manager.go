package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aryanox/ipalchemist/internal/config"
	"github.com/aryanox/ipalchemist/internal/model"
	"github.com/aryanox/ipalchemist/internal/store"
)

// Manager owns the working pool and the active source.
//
// All access to the pool, the active source, and the favorites set goes
// through the Manager's mutex; it is the single synchronization boundary
// for this state, shared by the CLI, the scheduler, and the selector.
type Manager struct {
	cfg    *config.Config
	store  store.Store
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	source    model.Source
	pool      model.Pool
	favorites *model.FavoritesSet
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient overrides the HTTP client used for online fetches.
// Tests point it at httptest servers.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.client = client }
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides the time source used for cache snapshot stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a pool manager. The online API source configured in
// cfg is active initially. Favorites are loaded from the store; a missing
// favorites key starts an empty set.
func NewManager(cfg *config.Config, st store.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		store:     st,
		source:    model.NewOnlineAPISource(cfg.APIURL),
		favorites: model.NewFavoritesSet(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.client == nil {
		m.client = &http.Client{Timeout: cfg.FetchTimeout.D()}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	data, ok, err := st.Load(store.KeyFavorites)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	if ok {
		if err := json.Unmarshal(data, m.favorites); err != nil {
			return nil, fmt.Errorf("failed to decode favorites: %w", err)
		}
	}
	return m, nil
}

// Source returns the active source.
func (m *Manager) Source() model.Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.source
}

// SetSource switches the active source and discards the in-memory pool,
// which must then be refetched.
func (m *Manager) SetSource(src model.Source) error {
	if err := src.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = src
	m.pool = nil
	m.logger.Info("active source switched, pool discarded", "source", src.String())
	return nil
}

// Pool returns a snapshot of the working pool.
func (m *Manager) Pool() model.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(model.Pool, len(m.pool))
	copy(out, m.pool)
	return out
}

// Fetch rebuilds the pool from the active source. On any error the
// existing pool is left untouched. Every successful online or file fetch
// is cached verbatim, timestamped, via the store; a cache write failure
// is logged but does not fail the fetch.
func (m *Manager) Fetch(ctx context.Context) (model.Pool, error) {
	src := m.Source()

	var fetched model.Pool
	var err error
	switch src.Kind {
	case model.SourceOnlineAPI:
		fetched, err = m.fetchOnline(ctx, src.URL)
	case model.SourceCustomFile:
		fetched, err = m.fetchFile(src.Path)
	case model.SourceTorNetwork:
		// The Tor egress identity is synthesized by the controller, not
		// drawn from a pool. An empty fetch always succeeds.
		fetched = model.Pool{}
	default:
		return nil, fmt.Errorf("%w: unknown source kind %d", ErrFetch, src.Kind)
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	// A SetSource racing this fetch discarded the pool; installing a
	// result from the replaced source would resurrect it.
	if m.source != src {
		m.mu.Unlock()
		m.logger.Info("source switched during fetch, result discarded", "source", src.String())
		return model.Pool{}, nil
	}
	fetched = fetched.Dedupe().MarkFavorites(m.favorites)
	m.pool = fetched
	m.mu.Unlock()

	if src.Kind != model.SourceTorNetwork {
		m.cacheSnapshot(fetched)
	}

	m.logger.Info("pool rebuilt", "source", src.String(), "records", len(fetched))
	return m.Pool(), nil
}

// cacheSnapshot persists the fetched pool under a timestamped cache key.
func (m *Manager) cacheSnapshot(p model.Pool) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		m.logger.Warn("failed to encode pool snapshot", "error", err)
		return
	}
	key := store.CachePrefix + m.now().Format("20060102_1504")
	if err := m.store.Save(key, data); err != nil {
		m.logger.Warn("failed to cache pool snapshot", "key", key, "error", err)
	}
}

// Favorites returns the favorites set's current entries.
func (m *Manager) Favorites() []model.Favorite {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.favorites.All()
}

// FavoritesIn returns the pool records flagged as favorites.
func FavoritesIn(p model.Pool) model.Pool {
	out := make(model.Pool, 0)
	for _, r := range p {
		if r.IsFavorite {
			out = append(out, r)
		}
	}
	return out
}

// AddFavorite adds the record's host to the favorites set and persists
// the set. It returns false without persisting when the host is already
// a favorite. The pool's favorite flags are refreshed in place.
func (m *Manager) AddFavorite(r model.ProxyRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.favorites.Add(r, m.now()) {
		return false, nil
	}
	m.pool = m.pool.MarkFavorites(m.favorites)
	return true, m.saveFavoritesLocked()
}

// RemoveFavorite removes a host from the favorites set and persists it.
func (m *Manager) RemoveFavorite(host string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.favorites.Remove(host) {
		return false, nil
	}
	m.pool = m.pool.MarkFavorites(m.favorites)
	return true, m.saveFavoritesLocked()
}

// saveFavoritesLocked persists the favorites set. Callers hold m.mu.
func (m *Manager) saveFavoritesLocked() error {
	data, err := json.MarshalIndent(m.favorites, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	if err := m.store.Save(store.KeyFavorites, data); err != nil {
		return fmt.Errorf("failed to save favorites: %w", err)
	}
	return nil
}
