package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is the string key / blob value space every persisted piece of state
// lives in. Values are opaque to the store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

const keySeparator = "||"

// Keys builds the logical key names under a common prefix.
type Keys struct {
	Prefix string
}

func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "apex"
	}
	return Keys{Prefix: prefix}
}

func (k Keys) UsersIndex() string {
	return k.Prefix + keySeparator + "users-index"
}

func (k Keys) UserDocument(athleteID string) string {
	return k.Prefix + keySeparator + "user-document" + keySeparator + athleteID
}

func (k Keys) AuthFlag() string {
	return k.Prefix + keySeparator + "auth-flag"
}

func (k Keys) CurrentAthleteID() string {
	return k.Prefix + keySeparator + "current-athlete-id"
}
