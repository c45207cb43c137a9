package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Favorite is one favorites entry. It carries the protocol, port, and
// country the record had at the time it was added; later fetches may
// report different values for the same host, but the favorite keeps its
// original snapshot.
type Favorite struct {
	Host     string    `json:"host"`
	Port     uint16    `json:"port"`
	Protocol Protocol  `json:"protocol"`
	Country  string    `json:"country,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// FavoritesSet is the set of favorite proxies, unique by host.
//
// Design decision: Uniqueness is by host alone, not (host, port), matching
// the membership test used when re-deriving IsFavorite flags on fetch. A
// host that serves multiple ports is still one favorite.
type FavoritesSet struct {
	byHost map[string]Favorite
}

// NewFavoritesSet returns an empty favorites set.
func NewFavoritesSet() *FavoritesSet {
	return &FavoritesSet{byHost: make(map[string]Favorite)}
}

// Add inserts the record's host into the set. Adding is idempotent on
// host identity: if the host is already present, Add is a no-op and
// returns false.
func (f *FavoritesSet) Add(r ProxyRecord, now time.Time) bool {
	if _, ok := f.byHost[r.Host]; ok {
		return false
	}
	f.byHost[r.Host] = Favorite{
		Host:     r.Host,
		Port:     r.Port,
		Protocol: r.Protocol,
		Country:  r.Country,
		AddedAt:  now,
	}
	return true
}

// Remove deletes the favorite with the given host.
// It returns false when the host was not present.
func (f *FavoritesSet) Remove(host string) bool {
	if _, ok := f.byHost[host]; !ok {
		return false
	}
	delete(f.byHost, host)
	return true
}

// Contains reports whether the host is a favorite.
func (f *FavoritesSet) Contains(host string) bool {
	_, ok := f.byHost[host]
	return ok
}

// Len returns the number of favorites.
func (f *FavoritesSet) Len() int {
	return len(f.byHost)
}

// All returns the favorites sorted by host for stable output.
func (f *FavoritesSet) All() []Favorite {
	out := make([]Favorite, 0, len(f.byHost))
	for _, fav := range f.byHost {
		out = append(out, fav)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// MarshalJSON encodes the set as a sorted list of entries, matching the
// on-disk favorites format.
func (f *FavoritesSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.All())
}

// UnmarshalJSON decodes a list of entries. Duplicate hosts in the input
// keep the first occurrence.
func (f *FavoritesSet) UnmarshalJSON(data []byte) error {
	var entries []Favorite
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	f.byHost = make(map[string]Favorite, len(entries))
	for _, e := range entries {
		if _, ok := f.byHost[e.Host]; ok {
			continue
		}
		f.byHost[e.Host] = e
	}
	return nil
}
