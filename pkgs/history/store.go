// Package history persists processed request records.
//
// Records are opaque JSON documents. Stores only append and list; nothing is
// ever updated in place.
package history

import (
	"context"
	"encoding/json"
)

// Store is an append-only log of JSON records.
type Store interface {
	// Append adds doc under id. Safe for concurrent use.
	Append(ctx context.Context, id string, doc json.RawMessage) error

	// List returns up to limit of the most recent records, oldest first.
	// A limit of zero or less returns everything.
	List(ctx context.Context, limit int) ([]json.RawMessage, error)

	Close() error
}

// NopStore discards every record.
type NopStore struct{}

// Append implements Store.
func (NopStore) Append(context.Context, string, json.RawMessage) error { return nil }

// List implements Store.
func (NopStore) List(context.Context, int) ([]json.RawMessage, error) { return nil, nil }

// Close implements Store.
func (NopStore) Close() error { return nil }

// tail returns the last limit docs, or all of them when limit <= 0.
func tail(docs []json.RawMessage, limit int) []json.RawMessage {
	if limit > 0 && len(docs) > limit {
		return docs[len(docs)-limit:]
	}
	return docs
}
