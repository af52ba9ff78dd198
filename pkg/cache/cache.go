// Package cache provides pluggable result caching for the layout pipeline.
//
// Determinism makes caching sound: identical inputs always produce identical
// geometry, so a fit can be keyed on a content hash of its inputs and
// options. Three backends are provided: a null cache (disabled), a file
// cache for local CLI use, and a Redis cache for the serve command.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Default TTLs per artifact kind. Networks are cheap to rebuild, fits and
// rendered artifacts less so.
const (
	TTLNetwork  = 6 * time.Hour
	TTLFit      = 24 * time.Hour
	TTLArtifact = 24 * time.Hour
)

// Cache is the storage interface shared by all backends. Get returns the
// stored bytes and whether the key was present; expired entries count as
// absent.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Hash returns the hex-encoded SHA-256 of data, the content hash used in
// all cache keys.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NetworkKeyOpts are the construction parameters that shape a network.
// RawLayout matters even when the bucket layout matches: it decides how the
// raw timestamps are parsed before bucketing.
type NetworkKeyOpts struct {
	Ego       string    `json:"ego"`
	Layout    string    `json:"layout"`
	RawLayout string    `json:"raw_layout"`
	TimeRange [2]string `json:"time_range"`
	MaxHops   int       `json:"max_hops"`
}

// FitKeyOpts are the layout and frame parameters that shape a fit on top
// of a network.
type FitKeyOpts struct {
	NetworkKeyOpts
	Minimize            string      `json:"minimize"`
	SqueezeSameCategory bool        `json:"squeeze_same_category"`
	BandStretch         [][2]string `json:"band_stretch"`
	Width               float64     `json:"width"`
	Height              float64     `json:"height"`
	BlockWidth          float64     `json:"block_width"`
	ProfileMatch        string      `json:"profile_match"`
	NormalizeProfile    bool        `json:"normalize_profile"`
	CenterProfile       bool        `json:"center_profile"`
}

// ArtifactKeyOpts identify one rendered artifact derived from a fit.
// Palette is a short hash of the color assignments that style the artifact
// without shaping the geometry.
type ArtifactKeyOpts struct {
	Format  string `json:"format"`
	Palette string `json:"palette,omitempty"`
}

// Keyer derives cache keys from content hashes and options. Implementations
// must be deterministic.
type Keyer interface {
	NetworkKey(dataHash string, opts NetworkKeyOpts) string
	FitKey(dataHash string, opts FitKeyOpts) string
	ArtifactKey(fitHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes the JSON encoding of the options into namespaced
// keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() DefaultKeyer { return DefaultKeyer{} }

func (DefaultKeyer) NetworkKey(dataHash string, opts NetworkKeyOpts) string {
	return "spreadline:network:" + dataHash + ":" + optsHash(opts)
}

func (DefaultKeyer) FitKey(dataHash string, opts FitKeyOpts) string {
	return "spreadline:fit:" + dataHash + ":" + optsHash(opts)
}

func (DefaultKeyer) ArtifactKey(fitHash string, opts ArtifactKeyOpts) string {
	return "spreadline:artifact:" + fitHash + ":" + optsHash(opts)
}

// optsHash serializes options to JSON and hashes the result. Struct field
// order makes the encoding stable.
func optsHash(opts any) string {
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Sprintf("unhashable:%v", opts)
	}
	return Hash(data)[:16]
}
