// internal/lobby/model.go
package lobby

// MetadataDisplayNameKey is the reserved metadata key every participant
// carries. Its value must be a string and passes through the moderator.
const MetadataDisplayNameKey = "displayName"

// UnknownLatency is reported for a participant whose round trip has never
// been measured.
const UnknownLatency = 9999

// Record is the persisted lobby record. It does not contain the participant
// list; that is assembled on read from the participant, metadata and latency
// stores. Timestamps are unix milliseconds.
type Record struct {
	ID              string `json:"id"`
	Game            string `json:"game"`
	DisplayName     string `json:"displayName"`
	Leader          string `json:"leader"`
	MaxParticipants int    `json:"maxParticipants"`
	Created         int64  `json:"created"`
	LastUpdate      int64  `json:"lastUpdate"`
	IsPrivate       bool   `json:"isPrivate"`
}

// Participant is the persisted per-lobby participant record. LastConnected
// is bumped on every connect event and doubles as the eviction idempotency
// snapshot: a pending eviction only fires if the stored value still equals
// the one captured at scheduling time.
type Participant struct {
	ID            string `json:"id"`
	Connected     bool   `json:"connected"`
	LastConnected int64  `json:"lastConnected"`
}

// Metadata is the open per-participant key/value map. Values are strings,
// numbers or booleans.
type Metadata map[string]any

// User is the assembled client-facing view of one participant.
type User struct {
	Participant
	Metadata Metadata `json:"metadata"`
	Latency  int64    `json:"latency"`
}

// Lobby is the assembled client-facing view of one lobby.
type Lobby struct {
	Record
	Participants []User `json:"participants"`
}
