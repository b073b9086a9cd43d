// internal/lobby/service.go
package lobby

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quickmesh/lobby/internal/auth"
	"github.com/quickmesh/lobby/internal/moderator"
	"github.com/quickmesh/lobby/internal/storage"
	"github.com/quickmesh/lobby/internal/taskqueue"
)

const (
	// DefaultEvictAfter is the disconnect-to-eviction window.
	DefaultEvictAfter = 15 * time.Second
	// DefaultPingInterval is the latency probe period.
	DefaultPingInterval = 5 * time.Second

	// staleAfter is how long a lobby may go without an update before
	// ListLobbies stops returning it.
	staleAfter = 2 * time.Hour

	taskTypeEvict = "evict-participant"
)

// evictPayload is the delayed eviction task payload. LastConnected is the
// idempotency snapshot: if the stored participant has reconnected since the
// task was scheduled, the values differ and the task is a no-op.
type evictPayload struct {
	Game          string
	LobbyID       string
	ParticipantID string
	LastConnected int64
}

// Config tunes a Service. Zero values fall back to defaults.
type Config struct {
	MaxLobbyParticipants int
	EvictAfter           time.Duration
	PingInterval         time.Duration
}

// Service orchestrates the lobby lifecycle: membership changes mutate
// Storage, then the assembled lobby view is broadcast to every connection
// registered for that lobby on this process.
type Service struct {
	storage   storage.Storage
	tasks     *taskqueue.Queue
	codec     *auth.Codec
	moderator moderator.Moderator
	logger    *logrus.Logger
	cfg       Config

	mu         sync.Mutex
	registries map[string]*Registry

	// ID generators, overridable in tests.
	NewLobbyID       func() string
	NewParticipantID func() string
}

// NewService wires a service instance. Registries and the task queue are
// owned by the instance, never package globals, so several isolated services
// can coexist in one process.
func NewService(st storage.Storage, codec *auth.Codec, mod moderator.Moderator, logger *logrus.Logger, cfg Config) *Service {
	if cfg.MaxLobbyParticipants <= 0 {
		cfg.MaxLobbyParticipants = 8
	}
	if cfg.EvictAfter <= 0 {
		cfg.EvictAfter = DefaultEvictAfter
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}

	s := &Service{
		storage:          st,
		tasks:            taskqueue.New(logger),
		codec:            codec,
		moderator:        mod,
		logger:           logger,
		cfg:              cfg,
		registries:       make(map[string]*Registry),
		NewLobbyID:       uuid.NewString,
		NewParticipantID: uuid.NewString,
	}

	s.tasks.DefineExecutor(taskTypeEvict, func(payload any) error {
		p, ok := payload.(evictPayload)
		if !ok {
			return nil
		}
		return s.evict(context.Background(), p)
	})

	return s
}

// Ping is the liveness probe. Always succeeds.
func (s *Service) Ping() {}

// ListLobbies assembles every lobby of a game and filters out the ones a
// client cannot join anyway: private lobbies, empty lobbies, lobbies stale
// beyond the two-hour window, and lobbies with nobody currently connected.
func (s *Service) ListLobbies(ctx context.Context, game string) ([]*Lobby, error) {
	if game == "" {
		return nil, badRequest("Missing game parameter")
	}

	entries, err := s.storage.Lobbies(game).Entries(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	lobbies := make([]*Lobby, 0, len(entries))
	for _, raw := range entries {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.WithField("error", err).Warn("Skipping undecodable lobby record")
			continue
		}
		view, err := s.assemble(ctx, &rec)
		if err != nil {
			return nil, err
		}
		if rec.IsPrivate || len(view.Participants) == 0 {
			continue
		}
		if now-rec.LastUpdate >= staleAfter.Milliseconds() {
			continue
		}
		connected := 0
		for _, u := range view.Participants {
			if u.Connected {
				connected++
			}
		}
		if connected == 0 {
			continue
		}
		lobbies = append(lobbies, view)
	}

	sort.Slice(lobbies, func(i, j int) bool { return lobbies[i].ID < lobbies[j].ID })
	return lobbies, nil
}

// Create mints a new lobby with the caller as leader and returns the signed
// session token plus the assembled view. The creator starts disconnected;
// like any disconnected participant it is scheduled for eviction, so a
// client that never opens its socket gets purged after the window.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	if req.LobbyDisplayName == "" {
		return nil, badRequest("Missing lobbyDisplayName parameter")
	}
	if req.PlayerDisplayName == "" {
		return nil, badRequest("Missing playerDisplayName parameter")
	}
	if req.Game == "" {
		return nil, badRequest("Missing game parameter")
	}

	lobbyName := s.moderator.ModerateLobbyDisplayName(req.LobbyDisplayName)
	playerName := s.moderator.ModeratePlayerDisplayName(req.PlayerDisplayName)

	now := time.Now().UnixMilli()
	participant := Participant{ID: s.NewParticipantID()}
	rec := &Record{
		ID:              s.NewLobbyID(),
		Game:            req.Game,
		DisplayName:     lobbyName,
		Leader:          participant.ID,
		MaxParticipants: s.cfg.MaxLobbyParticipants,
		Created:         now,
		LastUpdate:      now,
		IsPrivate:       req.IsPrivate,
	}

	if err := s.putParticipant(ctx, rec.ID, participant); err != nil {
		return nil, err
	}
	if err := s.putMetadata(ctx, rec.ID, participant.ID, MetadataDisplayNameKey, playerName); err != nil {
		return nil, err
	}
	if err := s.updateLobby(ctx, rec); err != nil {
		return nil, err
	}

	token, err := s.codec.Sign(auth.Claims{
		ParticipantID: participant.ID,
		LobbyID:       rec.ID,
		Game:          rec.Game,
	})
	if err != nil {
		return nil, err
	}

	s.scheduleEviction(rec.Game, rec.ID, participant)

	view, err := s.assemble(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &CreateResponse{
		Token: token,
		User:  view.user(participant.ID),
		Lobby: view,
	}, nil
}

// Join adds a participant to an existing lobby. The capacity check and the
// insert are two separate storage round trips; two concurrent joins can both
// pass the check and transiently exceed MaxParticipants. Known gap; closing
// it needs a transactional reserve in the storage contract.
func (s *Service) Join(ctx context.Context, req JoinRequest) (*JoinResponse, error) {
	if req.LobbyID == "" {
		return nil, badRequest("Missing lobbyId parameter")
	}
	if req.PlayerDisplayName == "" {
		return nil, badRequest("Missing playerDisplayName parameter")
	}
	if req.Game == "" {
		return nil, badRequest("Missing game parameter")
	}

	playerName := s.moderator.ModeratePlayerDisplayName(req.PlayerDisplayName)

	rec, err := s.lobbyRecord(ctx, req.Game, req.LobbyID)
	if err != nil {
		return nil, err
	}

	count, err := s.storage.Participants(rec.ID).Len(ctx)
	if err != nil {
		return nil, err
	}
	if count >= int64(rec.MaxParticipants) {
		return nil, forbidden("Lobby is full")
	}

	participant := Participant{ID: s.NewParticipantID()}
	if err := s.putParticipant(ctx, rec.ID, participant); err != nil {
		return nil, err
	}
	if err := s.putMetadata(ctx, rec.ID, participant.ID, MetadataDisplayNameKey, playerName); err != nil {
		return nil, err
	}
	if err := s.updateLobby(ctx, rec); err != nil {
		return nil, err
	}

	token, err := s.codec.Sign(auth.Claims{
		ParticipantID: participant.ID,
		LobbyID:       rec.ID,
		Game:          rec.Game,
	})
	if err != nil {
		return nil, err
	}

	s.scheduleEviction(rec.Game, rec.ID, participant)

	view, err := s.assemble(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &JoinResponse{
		Token: token,
		User:  view.user(participant.ID),
		Lobby: view,
	}, nil
}

// Leave removes the token's participant from its lobby.
func (s *Service) Leave(ctx context.Context, token string) error {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return badRequest("Invalid token")
	}

	rec, err := s.lobbyRecord(ctx, claims.Game, claims.LobbyID)
	if err != nil {
		return err
	}
	return s.removeFromLobby(ctx, rec, claims.ParticipantID)
}

// Kick removes another participant. Leader only.
func (s *Service) Kick(ctx context.Context, token, kickedUserID string) error {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return badRequest("Invalid token")
	}

	rec, err := s.lobbyRecord(ctx, claims.Game, claims.LobbyID)
	if err != nil {
		return err
	}
	if rec.Leader != claims.ParticipantID {
		return forbidden("Only the leader can kick a user")
	}
	return s.removeFromLobby(ctx, rec, kickedUserID)
}

// Destroy removes every participant, which cascades into lobby deletion.
// Leader only.
func (s *Service) Destroy(ctx context.Context, token string) error {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return badRequest("Invalid token")
	}

	rec, err := s.lobbyRecord(ctx, claims.Game, claims.LobbyID)
	if err != nil {
		return err
	}
	if rec.Leader != claims.ParticipantID {
		return forbidden("Only the leader can destroy the lobby")
	}

	ids, err := s.storage.Participants(rec.ID).Keys(ctx)
	if err != nil {
		return err
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := s.removeFromLobby(ctx, rec, id); err != nil {
			return err
		}
	}
	return nil
}

// SetMetadata writes one metadata entry for a participant and broadcasts the
// updated lobby. The reserved display-name key must be a string and passes
// through the moderator.
func (s *Service) SetMetadata(ctx context.Context, req SetMetadataRequest) error {
	rec, err := s.lobbyRecord(ctx, req.Game, req.LobbyID)
	if err != nil {
		return err
	}

	participant, ok, err := s.participant(ctx, rec.ID, req.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("Participant not found")
	}

	value := req.Value
	if req.Key == MetadataDisplayNameKey {
		name, isString := value.(string)
		if !isString {
			return badRequest("Invalid metadata value for key (" + req.Key + ")")
		}
		value = s.moderator.ModeratePlayerDisplayName(name)
	}

	if err := s.putMetadata(ctx, rec.ID, participant.ID, req.Key, value); err != nil {
		return err
	}
	return s.updateLobby(ctx, rec)
}

// SendTextMessage moderates a chat line and broadcasts it to every
// connection of the lobby registered on this process.
func (s *Service) SendTextMessage(ctx context.Context, req SendTextMessageRequest) error {
	reg, ok := s.lookupRegistry(req.LobbyID)
	if !ok {
		return nil
	}
	reg.Broadcast(TextMessage{
		FromUserID: req.FromUserID,
		Message:    s.moderator.ModerateTextMessage(req.Message),
	})
	return nil
}

// SendStatusMessage broadcasts a status line. Leader only.
func (s *Service) SendStatusMessage(ctx context.Context, req SendStatusMessageRequest) error {
	rec, err := s.lobbyRecord(ctx, req.Game, req.LobbyID)
	if err != nil {
		return err
	}
	if rec.Leader != req.FromUserID {
		return forbidden("Only the leader can send status messages")
	}

	if reg, ok := s.lookupRegistry(req.LobbyID); ok {
		reg.Broadcast(StatusMessage{Message: req.Message})
	}
	return nil
}

// SendDataMessage unicasts an opaque payload. Silent no-op when the target
// has no connection registered on this process.
func (s *Service) SendDataMessage(ctx context.Context, req SendDataMessageRequest) error {
	if reg, ok := s.lookupRegistry(req.LobbyID); ok {
		reg.Send(req.ToUserID, DataMessage{
			FromUserID: req.FromUserID,
			ToUserID:   req.ToUserID,
			Data:       req.Data,
		})
	}
	return nil
}

// Lobby assembles the client-facing view of one lobby: the record plus, for
// each participant, its record, metadata and last measured latency.
func (s *Service) Lobby(ctx context.Context, game, lobbyID string) (*Lobby, error) {
	rec, err := s.lobbyRecord(ctx, game, lobbyID)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, rec)
}

// --- internals ---

func (s *Service) lobbyRecord(ctx context.Context, game, lobbyID string) (*Record, error) {
	raw, ok, err := s.storage.Lobbies(game).Get(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("Lobby not found")
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) participant(ctx context.Context, lobbyID, participantID string) (Participant, bool, error) {
	raw, ok, err := s.storage.Participants(lobbyID).Get(ctx, participantID)
	if err != nil || !ok {
		return Participant{}, false, err
	}
	var p Participant
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Participant{}, false, err
	}
	return p, true, nil
}

func (s *Service) putParticipant(ctx context.Context, lobbyID string, p Participant) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.storage.Participants(lobbyID).Set(ctx, p.ID, string(raw))
}

func (s *Service) putMetadata(ctx context.Context, lobbyID, participantID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.storage.ParticipantMeta(lobbyID, participantID).Set(ctx, key, string(raw))
}

func (s *Service) latency(ctx context.Context, participantID string) int64 {
	raw, ok, err := s.storage.Latency(participantID).Get(ctx)
	if err != nil || !ok {
		return UnknownLatency
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return UnknownLatency
	}
	return ms
}

// assemble builds the full view for a record already in hand.
func (s *Service) assemble(ctx context.Context, rec *Record) (*Lobby, error) {
	entries, err := s.storage.Participants(rec.ID).Entries(ctx)
	if err != nil {
		return nil, err
	}

	participants := make([]User, 0, len(entries))
	for id, raw := range entries {
		var p Participant
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, err
		}

		metaEntries, err := s.storage.ParticipantMeta(rec.ID, id).Entries(ctx)
		if err != nil {
			return nil, err
		}
		meta := make(Metadata, len(metaEntries))
		for key, rawValue := range metaEntries {
			var value any
			if err := json.Unmarshal([]byte(rawValue), &value); err != nil {
				continue
			}
			meta[key] = value
		}

		participants = append(participants, User{
			Participant: p,
			Metadata:    meta,
			Latency:     s.latency(ctx, id),
		})
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ID < participants[j].ID
	})
	return &Lobby{Record: *rec, Participants: participants}, nil
}

// user picks one participant view out of an assembled lobby.
func (l *Lobby) user(participantID string) *User {
	for i := range l.Participants {
		if l.Participants[i].ID == participantID {
			return &l.Participants[i]
		}
	}
	return nil
}

// updateLobby bumps lastUpdate, persists the record and broadcasts the fresh
// view to the lobby's registered connections.
func (s *Service) updateLobby(ctx context.Context, rec *Record) error {
	rec.LastUpdate = time.Now().UnixMilli()
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.storage.Lobbies(rec.Game).Set(ctx, rec.ID, string(raw)); err != nil {
		return err
	}
	s.notifyLobbyUpdated(ctx, rec)
	return nil
}

func (s *Service) notifyLobbyUpdated(ctx context.Context, rec *Record) {
	reg, ok := s.lookupRegistry(rec.ID)
	if !ok || reg.Len() == 0 {
		return
	}
	view, err := s.assemble(ctx, rec)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"lobbyId": rec.ID,
			"error":   err,
		}).Warn("Failed to assemble lobby for broadcast")
		return
	}
	reg.Broadcast(LobbyUpdated{Lobby: view})
}

// removeFromLobby deletes the participant and its metadata/latency entries.
// Removing the last participant deletes the lobby; removing the leader
// promotes the lexicographically smallest remaining id, so the choice is
// deterministic regardless of storage enumeration order.
func (s *Service) removeFromLobby(ctx context.Context, rec *Record, participantID string) error {
	parts := s.storage.Participants(rec.ID)
	if err := parts.Delete(ctx, participantID); err != nil {
		return err
	}
	if err := s.storage.ParticipantMeta(rec.ID, participantID).Clear(ctx); err != nil {
		return err
	}
	if err := s.storage.Latency(participantID).Delete(ctx); err != nil {
		return err
	}

	remaining, err := parts.Keys(ctx)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		if err := s.deleteLobby(ctx, rec.Game, rec.ID); err != nil {
			return err
		}
	} else {
		if rec.Leader == participantID {
			sort.Strings(remaining)
			rec.Leader = remaining[0]
		}
		if err := s.updateLobby(ctx, rec); err != nil {
			return err
		}
	}

	if reg, ok := s.lookupRegistry(rec.ID); ok {
		if conn, ok := reg.Get(participantID); ok {
			conn.Disconnect()
		}
	}
	return nil
}

// deleteLobby garbage-collects the lobby record, its participant map and all
// per-participant metadata/latency entries, then force-disconnects any open
// connections and drops the registry.
func (s *Service) deleteLobby(ctx context.Context, game, lobbyID string) error {
	parts := s.storage.Participants(lobbyID)
	ids, err := parts.Keys(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.storage.ParticipantMeta(lobbyID, id).Clear(ctx); err != nil {
			return err
		}
		if err := s.storage.Latency(id).Delete(ctx); err != nil {
			return err
		}
	}
	if err := parts.Clear(ctx); err != nil {
		return err
	}
	if err := s.storage.Lobbies(game).Delete(ctx, lobbyID); err != nil {
		return err
	}

	s.logger.WithField("lobbyId", lobbyID).Info("Lobby deleted")

	if reg := s.takeRegistry(lobbyID); reg != nil {
		reg.DisconnectAll()
	}
	return nil
}

func (s *Service) scheduleEviction(game, lobbyID string, p Participant) {
	s.tasks.Schedule(taskqueue.Task{
		ScheduledAt: time.Now().Add(s.cfg.EvictAfter),
		Type:        taskTypeEvict,
		Payload: evictPayload{
			Game:          game,
			LobbyID:       lobbyID,
			ParticipantID: p.ID,
			LastConnected: p.LastConnected,
		},
	})
}

// evict is the delayed eviction executor. The lastConnected comparison makes
// stale tasks no-ops: a reconnect bumps the stored value and thereby cancels
// every eviction scheduled before it.
func (s *Service) evict(ctx context.Context, p evictPayload) error {
	rec, err := s.lobbyRecord(ctx, p.Game, p.LobbyID)
	if err != nil {
		if _, isService := KindOf(err); isService {
			return nil
		}
		return err
	}

	participant, ok, err := s.participant(ctx, p.LobbyID, p.ParticipantID)
	if err != nil || !ok {
		return err
	}
	if participant.LastConnected != p.LastConnected {
		return nil
	}

	s.logger.WithFields(logrus.Fields{
		"lobbyId":       p.LobbyID,
		"participantId": p.ParticipantID,
	}).Info("Evicting disconnected participant")

	return s.removeFromLobby(ctx, rec, p.ParticipantID)
}

// registry returns the lobby's connection registry, creating it lazily on
// first use.
func (s *Service) registry(lobbyID string) *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registries[lobbyID]
	if !ok {
		reg = NewRegistry()
		s.registries[lobbyID] = reg
	}
	return reg
}

func (s *Service) lookupRegistry(lobbyID string) (*Registry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registries[lobbyID]
	return reg, ok
}

// takeRegistry detaches and returns the lobby's registry, if any, so the
// caller can disconnect its connections without holding the service lock.
func (s *Service) takeRegistry(lobbyID string) *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg := s.registries[lobbyID]
	delete(s.registries, lobbyID)
	return reg
}
