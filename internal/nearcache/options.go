package nearcache

import (
	"fmt"
	"strings"

	"cache-mate/internal/common/errors"
)

// EvictionPolicy selects how the local snapshot makes room
type EvictionPolicy string

// SyncStrategy selects how writes reach other processes' snapshots
type SyncStrategy string

const (
	EvictionLRU EvictionPolicy = "LRU"

	// SyncUpdate pushes every write, value included, to peers
	SyncUpdate SyncStrategy = "UPDATE"
	// SyncNone keeps the snapshot process-local; peers are never told about writes
	SyncNone SyncStrategy = "NONE"
)

// DefaultCapacity is the per-set local snapshot bound
const DefaultCapacity = 100

// Options configures a Map
type Options struct {
	Capacity       int            `json:"cacheSize"`
	EvictionPolicy EvictionPolicy `json:"evictionPolicy"`
	SyncStrategy   SyncStrategy   `json:"syncStrategy"`
	// InstanceID identifies this process on the sync channel; random when empty
	InstanceID    string `json:"-"`
	ChannelPrefix string `json:"-"`
}

// DefaultOptions returns LRU eviction, update-on-write sync and the default capacity
func DefaultOptions() Options {
	return Options{
		Capacity:       DefaultCapacity,
		EvictionPolicy: EvictionLRU,
		SyncStrategy:   SyncUpdate,
		ChannelPrefix:  DefaultChannelPrefix,
	}
}

// ParseEvictionPolicy accepts only LRU, case-insensitively
func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	if strings.EqualFold(strings.TrimSpace(s), string(EvictionLRU)) {
		return EvictionLRU, nil
	}
	return "", errors.ConfigError(fmt.Sprintf("unsupported eviction policy %q", s))
}

// ParseSyncStrategy accepts UPDATE or NONE, case-insensitively
func ParseSyncStrategy(s string) (SyncStrategy, error) {
	switch SyncStrategy(strings.ToUpper(strings.TrimSpace(s))) {
	case SyncUpdate:
		return SyncUpdate, nil
	case SyncNone:
		return SyncNone, nil
	default:
		return "", errors.ConfigError(fmt.Sprintf("unsupported sync strategy %q", s))
	}
}

// Validate checks the options
func (o Options) Validate() error {
	if o.Capacity <= 0 {
		return errors.ConfigError("local capacity must be positive").WithContext("capacity", o.Capacity)
	}
	if o.EvictionPolicy != EvictionLRU {
		return errors.ConfigError(fmt.Sprintf("unsupported eviction policy %q", o.EvictionPolicy))
	}
	if o.SyncStrategy != SyncUpdate && o.SyncStrategy != SyncNone {
		return errors.ConfigError(fmt.Sprintf("unsupported sync strategy %q", o.SyncStrategy))
	}
	return nil
}
