package storage

import (
	"context"
	"errors"
)

// ErrDegraded marks a store fault that was absorbed: the caller got a
// usable answer (empty data, or "changed") but persistence did not happen.
var ErrDegraded = errors.New("storage degraded")

// DocumentStore keeps whole JSON documents by key. Load returns nil and no
// error for a missing key.
//
// Documents are read and written whole. Two overlapping read-modify-write
// cycles on the same key can lose one of the updates.
type DocumentStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, doc []byte) error
}
