// internal/lobby/api.go
package lobby

import "encoding/json"

// Request/response shapes for the lifecycle operations, carried as JSON over
// whatever request mechanism the transport provides.

type ListLobbiesRequest struct {
	Game string `json:"game"`
}

type ListLobbiesResponse struct {
	Lobbies []*Lobby `json:"lobbies"`
}

type CreateRequest struct {
	Game              string `json:"game"`
	LobbyDisplayName  string `json:"lobbyDisplayName"`
	PlayerDisplayName string `json:"playerDisplayName"`
	IsPrivate         bool   `json:"isPrivate,omitempty"`
}

type CreateResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
	Lobby *Lobby `json:"lobby"`
}

type JoinRequest struct {
	Game              string `json:"game"`
	LobbyID           string `json:"lobbyId"`
	PlayerDisplayName string `json:"playerDisplayName"`
}

type JoinResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
	Lobby *Lobby `json:"lobby"`
}

type LeaveRequest struct {
	Token string `json:"token"`
}

type KickRequest struct {
	Token        string `json:"token"`
	KickedUserID string `json:"kickedUserId"`
}

type DestroyRequest struct {
	Token string `json:"token"`
}

type SetMetadataRequest struct {
	Game    string `json:"game"`
	LobbyID string `json:"lobbyId"`
	UserID  string `json:"userId"`
	Key     string `json:"key"`
	Value   any    `json:"value"`
}

type SendTextMessageRequest struct {
	Game       string `json:"game"`
	LobbyID    string `json:"lobbyId"`
	FromUserID string `json:"fromUserId"`
	Message    string `json:"message"`
}

type SendStatusMessageRequest struct {
	Game       string `json:"game"`
	LobbyID    string `json:"lobbyId"`
	FromUserID string `json:"fromUserId"`
	Message    string `json:"message"`
}

type SendDataMessageRequest struct {
	Game       string          `json:"game"`
	LobbyID    string          `json:"lobbyId"`
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Data       json.RawMessage `json:"data"`
}
