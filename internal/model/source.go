package model

import "fmt"

// SourceKind discriminates the Source variants.
type SourceKind int

const (
	// SourceOnlineAPI fetches records from a JSON proxy-list API.
	SourceOnlineAPI SourceKind = iota

	// SourceTorNetwork represents the Tor circuit as the egress point.
	// Fetching from it yields an empty pool; the actual egress identity
	// is synthesized by the Tor controller, not drawn from a pool.
	SourceTorNetwork

	// SourceCustomFile reads records from a local text file.
	SourceCustomFile
)

// String returns a short tag for the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceOnlineAPI:
		return "online-api"
	case SourceTorNetwork:
		return "tor-network"
	case SourceCustomFile:
		return "custom-file"
	default:
		return "unknown"
	}
}

// Source is the tagged variant describing where pool records come from.
// Exactly one source is active at a time; switching the active source
// discards the in-memory pool, which must then be refetched.
type Source struct {
	// Kind selects the variant.
	Kind SourceKind `json:"kind"`

	// URL is the API endpoint. Set only for SourceOnlineAPI.
	URL string `json:"url,omitempty"`

	// Path is the local file path. Set only for SourceCustomFile.
	Path string `json:"path,omitempty"`
}

// NewOnlineAPISource returns a Source drawing from a JSON proxy-list API.
func NewOnlineAPISource(url string) Source {
	return Source{Kind: SourceOnlineAPI, URL: url}
}

// NewTorNetworkSource returns the Tor network Source.
func NewTorNetworkSource() Source {
	return Source{Kind: SourceTorNetwork}
}

// NewCustomFileSource returns a Source reading from a local file.
func NewCustomFileSource(path string) Source {
	return Source{Kind: SourceCustomFile, Path: path}
}

// Validate checks that the variant carries the field it requires.
func (s Source) Validate() error {
	switch s.Kind {
	case SourceOnlineAPI:
		if s.URL == "" {
			return fmt.Errorf("online-api source requires a URL")
		}
	case SourceCustomFile:
		if s.Path == "" {
			return fmt.Errorf("custom-file source requires a path")
		}
	case SourceTorNetwork:
		// Nothing to carry.
	default:
		return fmt.Errorf("unknown source kind %d", s.Kind)
	}
	return nil
}

// String renders the source for logs and status output.
func (s Source) String() string {
	switch s.Kind {
	case SourceOnlineAPI:
		return fmt.Sprintf("online-api(%s)", s.URL)
	case SourceCustomFile:
		return fmt.Sprintf("custom-file(%s)", s.Path)
	default:
		return s.Kind.String()
	}
}
