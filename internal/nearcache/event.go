package nearcache

import (
	"strings"

	"cache-mate/internal/codec"
	"cache-mate/internal/common/errors"
)

// Action is the kind of change carried by an Event
type Action string

const (
	ActionSet    Action = "set"
	ActionDelete Action = "delete"
	ActionClear  Action = "clear"
)

// Event is published on a set's sync channel after every write so peers can update their
// snapshots. Set events carry the new value. Version is the set's write counter right after
// the write; zero means the sender did not stamp one.
type Event struct {
	Set     string   `json:"set"`
	Action  Action   `json:"action"`
	Sender  string   `json:"sender"`
	Keys    []string `json:"keys,omitempty"`
	Value   string   `json:"value,omitempty"`
	Version uint64   `json:"version,omitempty"`
}

// DefaultChannelPrefix namespaces sync channels in the remote store
const DefaultChannelPrefix = "cache-mate:sync:"

// versionSuffix names the per-set write counter next to the set's hash
const versionSuffix = ":cache-mate:version"

// VersionKey returns the key of set's write counter. It shares the set's cluster hash slot so
// a write and its counter bump run in one transaction.
func VersionKey(set string) string {
	if open := strings.IndexByte(set, '{'); open >= 0 {
		if end := strings.IndexByte(set[open+1:], '}'); end > 0 {
			return set + versionSuffix
		}
	}
	return "{" + set + "}" + versionSuffix
}

// ChannelName returns the sync channel for set
func ChannelName(prefix, set string) string {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return prefix + set
}

func (e Event) validate() error {
	switch e.Action {
	case ActionSet:
		if len(e.Keys) != 1 {
			return errors.ValidationError("set event must carry exactly one key")
		}
	case ActionDelete:
		if len(e.Keys) == 0 {
			return errors.ValidationError("delete event must carry keys")
		}
	case ActionClear:
	default:
		return errors.ValidationError("unknown sync action " + string(e.Action))
	}
	if strings.TrimSpace(e.Sender) == "" {
		return errors.ValidationError("sync event has no sender")
	}
	return nil
}

func encodeEvent(e Event) (string, error) {
	return codec.Encode(e)
}

func decodeEvent(payload string) (Event, error) {
	e, err := codec.DecodeInto[Event](payload)
	if err != nil {
		return Event{}, err
	}
	if err := e.validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
