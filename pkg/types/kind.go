package types

import (
	"fmt"
	"strings"
)

// Kind identifies one entity variant.
type Kind string

// Standard entity kinds.
const (
	KindPet          Kind = "pet"
	KindTask         Kind = "task"
	KindMeal         Kind = "meal"
	KindMedication   Kind = "medication"
	KindHealthRecord Kind = "health_record"
	KindActivity     Kind = "activity"
	KindUser         Kind = "user"
)

// StoragePrefix namespaces every key the engine writes to the local store.
const StoragePrefix = "@petcare:"

// Bookkeeping keys stored next to the collections.
const (
	InitializedKey   = StoragePrefix + "initialized"
	SchemaVersionKey = StoragePrefix + "schema_version"
)

// KindInfo describes where a kind lives locally and remotely.
type KindInfo struct {
	Kind Kind
	// Collection is the remote table name.
	Collection string
	// StorageKey holds the local record set.
	StorageKey string
	// OwnerField is the local JSON field used for owner filtering.
	OwnerField string
	// RemoteOwnerField is the remote column used for owner filtering.
	RemoteOwnerField string
}

var kindInfo = map[Kind]KindInfo{
	KindPet:          newKindInfo(KindPet, "pets", "userId"),
	KindTask:         newKindInfo(KindTask, "tasks", "userId"),
	KindMeal:         newKindInfo(KindMeal, "meals", "userId"),
	KindMedication:   newKindInfo(KindMedication, "medications", "userId"),
	KindHealthRecord: newKindInfo(KindHealthRecord, "health_records", "userId"),
	KindActivity:     newKindInfo(KindActivity, "activity_sessions", "userId"),
	KindUser:         newKindInfo(KindUser, "users", "id"),
}

func newKindInfo(k Kind, collection, owner string) KindInfo {
	remoteOwner := owner
	if owner == "userId" {
		remoteOwner = "user_id"
	}
	return KindInfo{
		Kind:             k,
		Collection:       collection,
		StorageKey:       StoragePrefix + collection,
		OwnerField:       owner,
		RemoteOwnerField: remoteOwner,
	}
}

// StandardKinds lists every kind in a stable order.
var StandardKinds = []Kind{
	KindUser,
	KindPet,
	KindTask,
	KindMeal,
	KindMedication,
	KindHealthRecord,
	KindActivity,
}

// Info returns the descriptor for k.
func (k Kind) Info() (KindInfo, bool) {
	info, ok := kindInfo[k]
	return info, ok
}

// Collection returns the remote collection name, or "" for an unknown kind.
func (k Kind) Collection() string {
	return kindInfo[k].Collection
}

// StorageKey returns the local storage key, or "" for an unknown kind.
func (k Kind) StorageKey() string {
	return kindInfo[k].StorageKey
}

func (k Kind) String() string { return string(k) }

// ParseKind accepts a kind name or its collection name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range StandardKinds {
		info := kindInfo[k]
		if s == string(k) || s == info.Collection {
			return k, nil
		}
	}
	switch s {
	case "healthrecord", "health-record", "health-records":
		return KindHealthRecord, nil
	case "activities", "activity_session", "activity-sessions":
		return KindActivity, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// CollectionKeys returns the storage keys of every standard kind.
func CollectionKeys() []string {
	keys := make([]string, 0, len(StandardKinds))
	for _, k := range StandardKinds {
		keys = append(keys, kindInfo[k].StorageKey)
	}
	return keys
}
