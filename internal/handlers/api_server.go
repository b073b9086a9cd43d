// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/quickmesh/lobby/internal/lobby"
)

// errorResponse is the body returned for any failed lifecycle request.
type errorResponse struct {
	Reason string `json:"reason"`
}

// ListLobbiesHandler serves GET /lobbies?game=<game>.
func ListLobbiesHandler(svc *lobby.Service, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbies, err := svc.ListLobbies(r.Context(), r.URL.Query().Get("game"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, lobby.ListLobbiesResponse{Lobbies: lobbies})
	}
}

// CreateLobbyHandler serves POST /create.
func CreateLobbyHandler(svc *lobby.Service, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lobby.CreateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := svc.Create(r.Context(), req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// JoinLobbyHandler serves POST /join.
func JoinLobbyHandler(svc *lobby.Service, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lobby.JoinRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := svc.Join(r.Context(), req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// LeaveLobbyHandler serves POST /leave.
func LeaveLobbyHandler(svc *lobby.Service, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lobby.LeaveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.Leave(r.Context(), req.Token); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

// KickHandler serves POST /kick.
func KickHandler(svc *lobby.Service, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lobby.KickRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.Kick(r.Context(), req.Token, req.KickedUserID); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

// DestroyLobbyHandler serves POST /destroy.
func DestroyLobbyHandler(svc *lobby.Service, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lobby.DestroyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.Destroy(r.Context(), req.Token); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

// PingHandler serves POST /ping. Always succeeds.
func PingHandler(svc *lobby.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Ping()
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "Invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service error kinds onto HTTP statuses; anything else is a
// 500 with a generic reason.
func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	kind, ok := lobby.KindOf(err)
	if !ok {
		logger.WithField("error", err).Error("Internal error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Reason: "Internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch kind {
	case lobby.KindBadRequest:
		status = http.StatusBadRequest
	case lobby.KindNotFound:
		status = http.StatusNotFound
	case lobby.KindForbidden:
		status = http.StatusForbidden
	}
	writeJSON(w, status, errorResponse{Reason: err.Error()})
}
