package config

import (
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// RootDataKey names the project data directory in snapshot listings.
	RootDataKey = "_root_data"
	// OutputKey names the script's own output directory in snapshot listings.
	OutputKey = "_output"
)

// ErrReservedKey is returned when configuration tries to define a reserved path key.
var ErrReservedKey = errors.New("reserved path key")

var reservedKeys = map[string]bool{
	RootDataKey: true,
	OutputKey:   true,
}

// IsReserved reports whether key can never be set through configuration.
func IsReserved(key string) bool {
	return reservedKeys[key]
}

// TrackedPaths is a key to path mapping that remembers which keys were read.
// The snapshot archiver uses the read set to list only the data directories a
// run actually touched.
type TrackedPaths struct {
	values map[string]string
	used   map[string]bool
}

// NewTrackedPaths validates initial and returns a mapping holding a copy of it.
func NewTrackedPaths(initial map[string]string) (*TrackedPaths, error) {
	for key := range initial {
		if IsReserved(key) {
			return nil, errors.Wrapf(ErrReservedKey, "%q", key)
		}
	}

	values := make(map[string]string, len(initial))
	for key, value := range initial {
		values[key] = value
	}
	return &TrackedPaths{
		values: values,
		used:   make(map[string]bool),
	}, nil
}

// Get returns the path for key and records the access.
func (p *TrackedPaths) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	value, ok := p.values[key]
	if ok {
		if p.used == nil {
			p.used = make(map[string]bool)
		}
		p.used[key] = true
	}
	return value, ok
}

// Set stores a path under key. Reserved keys are rejected.
func (p *TrackedPaths) Set(key, value string) error {
	if IsReserved(key) {
		return errors.Wrapf(ErrReservedKey, "%q", key)
	}
	if p.values == nil {
		p.values = make(map[string]string)
	}
	p.values[key] = value
	return nil
}

// Len returns the number of configured keys.
func (p *TrackedPaths) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

// Keys returns every configured key, sorted.
func (p *TrackedPaths) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.values))
	for key := range p.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// UsedKeys returns the keys read through Get so far, sorted.
func (p *TrackedPaths) UsedKeys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.used))
	for key := range p.used {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a plain copy of the mapping without marking anything as read.
func (p *TrackedPaths) Snapshot() map[string]string {
	out := make(map[string]string, p.Len())
	if p == nil {
		return out
	}
	for key, value := range p.values {
		out[key] = value
	}
	return out
}

func (p *TrackedPaths) MarshalYAML() (interface{}, error) {
	return p.Snapshot(), nil
}

func (p *TrackedPaths) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := NewTrackedPaths(raw)
	if err != nil {
		return err
	}
	*p = *parsed
	return nil
}
