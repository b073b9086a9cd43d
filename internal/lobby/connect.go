// internal/lobby/connect.go
package lobby

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quickmesh/lobby/internal/auth"
)

// OnNewConnection onboards one freshly accepted connection: verify the token
// from the handshake, load lobby and participant, mark the participant
// connected, register the connection, start the latency probe and wire the
// message/disconnect callbacks. Failures on this path have no
// request/response channel to report through, so they force a disconnect.
func (s *Service) OnNewConnection(ctx context.Context, conn Conn) {
	token := conn.Param("token")

	claims, err := s.codec.Verify(token)
	if err != nil {
		s.logger.WithField("error", err).Info("Connection with invalid token")
		conn.Disconnect()
		return
	}

	rec, err := s.lobbyRecord(ctx, claims.Game, claims.LobbyID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"lobbyId": claims.LobbyID,
			"error":   err,
		}).Info("Connection for unknown lobby")
		conn.Disconnect()
		return
	}

	participant, ok, err := s.participant(ctx, claims.LobbyID, claims.ParticipantID)
	if err != nil || !ok {
		s.logger.WithFields(logrus.Fields{
			"lobbyId":       claims.LobbyID,
			"participantId": claims.ParticipantID,
		}).Info("Connection for unknown participant")
		conn.Disconnect()
		return
	}

	participant.Connected = true
	participant.LastConnected = time.Now().UnixMilli()
	if err := s.putParticipant(ctx, claims.LobbyID, participant); err != nil {
		s.logger.WithField("error", err).Warn("Failed to mark participant connected")
		conn.Disconnect()
		return
	}

	s.registry(claims.LobbyID).Put(claims.ParticipantID, conn)

	if err := s.updateLobby(ctx, rec); err != nil {
		s.logger.WithField("error", err).Warn("Failed to update lobby on connect")
	}

	stopProbe := make(chan struct{})
	go s.probeLatency(conn, claims.ParticipantID, stopProbe)

	conn.OnDisconnect(func() {
		close(stopProbe)
		if err := s.onDisconnect(context.Background(), claims); err != nil {
			s.logger.WithFields(logrus.Fields{
				"lobbyId":       claims.LobbyID,
				"participantId": claims.ParticipantID,
				"error":         err,
			}).Warn("Disconnect handling failed")
		}
	})
	conn.OnMessage(func(m Message) {
		s.routeMessage(context.Background(), claims, m)
	})

	s.logger.WithFields(logrus.Fields{
		"lobbyId":       claims.LobbyID,
		"participantId": claims.ParticipantID,
	}).Info("Participant connected")
}

// onDisconnect flips the participant to disconnected and either destroys the
// lobby (nobody left connected) or schedules the delayed eviction with the
// participant's current lastConnected as idempotency snapshot.
func (s *Service) onDisconnect(ctx context.Context, claims auth.Claims) error {
	if reg, ok := s.lookupRegistry(claims.LobbyID); ok {
		reg.Remove(claims.ParticipantID)
	}

	participant, ok, err := s.participant(ctx, claims.LobbyID, claims.ParticipantID)
	if err != nil || !ok {
		// Already removed (leave, kick, eviction); nothing to do.
		return err
	}

	participant.Connected = false
	if err := s.putParticipant(ctx, claims.LobbyID, participant); err != nil {
		return err
	}

	entries, err := s.storage.Participants(claims.LobbyID).Entries(ctx)
	if err != nil {
		return err
	}
	connected := 0
	for _, raw := range entries {
		var p Participant
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr != nil {
			continue
		}
		if p.Connected {
			connected++
		}
	}
	if connected == 0 {
		return s.deleteLobby(ctx, claims.Game, claims.LobbyID)
	}

	rec, err := s.lobbyRecord(ctx, claims.Game, claims.LobbyID)
	if err != nil {
		return err
	}
	if err := s.updateLobby(ctx, rec); err != nil {
		return err
	}

	s.scheduleEviction(claims.Game, claims.LobbyID, participant)
	return nil
}

// probeLatency measures the round trip on a fixed interval and writes the
// result to the latency store, until stop closes.
func (s *Service) probeLatency(conn Conn, participantID string, stop <-chan struct{}) {
	probe := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PingInterval)
		defer cancel()
		rtt, err := conn.Ping(ctx)
		if err != nil {
			return
		}
		ms := strconv.FormatInt(rtt.Milliseconds(), 10)
		if err := s.storage.Latency(participantID).Set(ctx, ms); err != nil {
			s.logger.WithField("error", err).Debug("Failed to store latency")
		}
	}

	probe()
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			probe()
		}
	}
}

// routeMessage dispatches one inbound message to the matching operation,
// stamping the sender's id as origin. Handler errors are logged and
// swallowed; they must never reach the connection.
func (s *Service) routeMessage(ctx context.Context, claims auth.Claims, m Message) {
	var err error
	switch msg := m.(type) {
	case TextMessage:
		err = s.SendTextMessage(ctx, SendTextMessageRequest{
			Game:       claims.Game,
			LobbyID:    claims.LobbyID,
			FromUserID: claims.ParticipantID,
			Message:    msg.Message,
		})
	case DataMessage:
		err = s.SendDataMessage(ctx, SendDataMessageRequest{
			Game:       claims.Game,
			LobbyID:    claims.LobbyID,
			FromUserID: claims.ParticipantID,
			ToUserID:   msg.ToUserID,
			Data:       msg.Data,
		})
	case StatusMessage:
		err = s.SendStatusMessage(ctx, SendStatusMessageRequest{
			Game:       claims.Game,
			LobbyID:    claims.LobbyID,
			FromUserID: claims.ParticipantID,
			Message:    msg.Message,
		})
	case SetMetadataMessage:
		err = s.SetMetadata(ctx, SetMetadataRequest{
			Game:    claims.Game,
			LobbyID: claims.LobbyID,
			UserID:  msg.UserID,
			Key:     msg.Key,
			Value:   msg.Value,
		})
	default:
		// lobby-updated is outbound only; anything else is ignored.
		return
	}

	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"lobbyId":       claims.LobbyID,
			"participantId": claims.ParticipantID,
			"error":         err,
		}).Warn("Inbound message handling failed")
	}
}
