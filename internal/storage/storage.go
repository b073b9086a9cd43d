// internal/storage/storage.go
package storage

import "context"

// Storage is the externalizable view of lobby state. Every handle is
// namespaced by game and lobby id so multiple games and lobbies sharing one
// backend never collide. Implementations may live in-process (Memory) or on
// a shared remote store (Redis, Postgres); the lobby service treats them
// identically and does not retry failed operations.
//
// Values are opaque strings. Callers are expected to store JSON blobs.
type Storage interface {
	// Lobbies holds one lobby record per lobby id, per game.
	Lobbies(game string) Hash
	// Participants holds one participant record per participant id, per lobby.
	Participants(lobbyID string) Hash
	// ParticipantMeta holds the open key/value metadata map of one
	// participant within one lobby.
	ParticipantMeta(lobbyID, participantID string) Hash
	// Latency holds the last measured round-trip time for one participant,
	// in milliseconds.
	Latency(participantID string) Value
}

// Hash is a remote map handle: string fields to opaque string values.
type Hash interface {
	Keys(ctx context.Context) ([]string, error)
	Entries(ctx context.Context) (map[string]string, error)
	// Get returns the value and whether the field exists.
	Get(ctx context.Context, field string) (string, bool, error)
	Set(ctx context.Context, field, value string) error
	Delete(ctx context.Context, field string) error
	Len(ctx context.Context) (int64, error)
	// Clear drops the whole namespace. Used when a lobby is garbage-collected.
	Clear(ctx context.Context) error
}

// Value is a remote scalar handle.
type Value interface {
	// Get returns the value and whether it has ever been set.
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, value string) error
	Delete(ctx context.Context) error
}
