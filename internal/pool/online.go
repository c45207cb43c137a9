package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"slices"
	"strconv"

	"github.com/aryanox/ipalchemist/internal/model"
)

// maxResponseBytes bounds the API response body read. Proxy lists are a
// few hundred kilobytes; anything past this is a misbehaving endpoint.
const maxResponseBytes = 10 << 20

// userAgents is the small pool of client identities sampled per fetch.
// Proxy-list APIs rate-limit aggressively on repeated identical clients.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// apiEnvelope is the expected top-level shape of the proxy-list API
// response: a "data" list of records.
type apiEnvelope struct {
	Data []apiRecord `json:"data"`
}

// apiRecord is one entry of the proxy-list API. The API reports ports as
// strings and may omit any field, so everything is parsed defensively.
type apiRecord struct {
	IP          string          `json:"ip"`
	Port        string          `json:"port"`
	Country     string          `json:"country"`
	Latency     float64         `json:"latency"`
	LastChecked json.RawMessage `json:"lastChecked"`
	Protocols   []string        `json:"protocols"`
}

// fetchOnline issues one bounded request to the proxy-list API and maps
// the envelope onto filtered proxy records.
//
// Filter policy, applied per entry in order: latency must be at or below
// the configured ceiling; the country must be in the favorite-country
// allowlist when that allowlist is non-empty; and the entry must
// advertise at least one protocol from the configured preference order.
// The first matching preferred protocol is bound to the record, not the
// fastest. Entries failing any filter are dropped silently.
func (m *Manager) fetchOnline(ctx context.Context, url string) (model.Pool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read side already consumed

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrFetch, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("%w: missing top-level record list", ErrSchema)
	}

	pool := make(model.Pool, 0, len(envelope.Data))
	for _, entry := range envelope.Data {
		record, ok := m.filterEntry(entry)
		if !ok {
			continue
		}
		pool = append(pool, record)
	}
	return pool, nil
}

// filterEntry applies the configured filters to one API entry. A false
// return means the entry is dropped, which is routine and not an error.
func (m *Manager) filterEntry(entry apiRecord) (model.ProxyRecord, bool) {
	if entry.IP == "" {
		return model.ProxyRecord{}, false
	}
	port, err := strconv.ParseUint(entry.Port, 10, 16)
	if err != nil || port == 0 {
		return model.ProxyRecord{}, false
	}

	if int(entry.Latency) > m.cfg.MaxLatencyMs {
		return model.ProxyRecord{}, false
	}

	if len(m.cfg.FavoriteCountries) > 0 && !slices.Contains(m.cfg.FavoriteCountries, entry.Country) {
		return model.ProxyRecord{}, false
	}

	// Bind the first preferred protocol the entry advertises.
	var bound model.Protocol
	for _, preferred := range m.cfg.ProtocolPreference {
		if slices.Contains(entry.Protocols, preferred.String()) {
			bound = preferred
			break
		}
	}
	if bound == "" {
		return model.ProxyRecord{}, false
	}

	return model.ProxyRecord{
		Host:      entry.IP,
		Port:      uint16(port),
		Protocol:  bound,
		Country:   entry.Country,
		LatencyMs: int(entry.Latency),
	}, true
}
