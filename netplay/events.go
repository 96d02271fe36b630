package netplay

import "encoding/json"

// CharacterType identifies a playable character.
type CharacterType string

// StageType identifies a stage.
type StageType string

// RoomState is the server-driven phase of a room.
type RoomState string

const (
	RoomWaiting         RoomState = "waiting"
	RoomCharacterSelect RoomState = "character_select"
	RoomLoading         RoomState = "loading"
	RoomPlaying         RoomState = "playing"
	RoomFinished        RoomState = "finished"
)

// NetworkPlayer is one member of a room as the server reports it.
type NetworkPlayer struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Character *CharacterType `json:"character"`
	Ready     bool           `json:"ready"`
	Connected bool           `json:"connected"`
	Stats     PlayerStats    `json:"stats"`
}

// PlayerStats is the per-match scoreboard slice of a player.
type PlayerStats struct {
	Stocks int `json:"stocks"`
	KOs    int `json:"kos"`
	Falls  int `json:"falls"`
	Damage int `json:"damage"`
}

// RoomData is the client's materialized view of a server room.
type RoomData struct {
	ID         string          `json:"id"`
	Players    []NetworkPlayer `json:"players"`
	MaxPlayers int             `json:"maxPlayers"`
	Stage      *StageType      `json:"stage"`
	State      RoomState       `json:"state"`
}

// Player returns the member with the given id, or nil.
func (r *RoomData) Player(id string) *NetworkPlayer {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// Handshake payloads.

type authRequest struct {
	Token string `json:"token"`
}

type authSuccess struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

type authFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Matchmaking and room payloads.

// MatchFoundEvent announces the room a queued player was matched into.
type MatchFoundEvent struct {
	RoomID string `json:"roomId"`
}

// CreateRoomRequest configures a new private room.
type CreateRoomRequest struct {
	Name       string `json:"name,omitempty"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
	Private    bool   `json:"private,omitempty"`
}

type joinRoomRequest struct {
	RoomID string `json:"roomId"`
}

type characterSelectedEvent struct {
	PlayerID  string        `json:"playerId"`
	Character CharacterType `json:"character"`
}

type stageSelectedEvent struct {
	Stage StageType `json:"stage"`
}

type playerReadyEvent struct {
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

type playerLeftEvent struct {
	PlayerID string `json:"playerId"`
}

// Gameplay payloads. The core forwards these opaquely; only the fields the
// SDK itself needs are typed.

// PlayerInputMessage carries one frame of input.
type PlayerInputMessage struct {
	Frame   uint32  `json:"frame"`
	MoveX   float64 `json:"moveX"`
	MoveY   float64 `json:"moveY"`
	Jump    bool    `json:"jump"`
	Attack  bool    `json:"attack"`
	Special bool    `json:"special"`
	Shield  bool    `json:"shield"`
}

// PlayerPositionMessage reports the local player's position for interpolation.
type PlayerPositionMessage struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VelocityX float64 `json:"velocityX"`
	VelocityY float64 `json:"velocityY"`
	Facing    int     `json:"facing"`
}

// GameStateMessage is a full authoritative snapshot pushed by the server.
type GameStateMessage struct {
	Frame   uint32          `json:"frame"`
	Players json.RawMessage `json:"players"`
	Stage   json.RawMessage `json:"stage,omitempty"`
}

// PlayerUpdateEvent is an incremental per-player update.
type PlayerUpdateEvent struct {
	PlayerID string          `json:"playerId"`
	Data     json.RawMessage `json:"data"`
}

// MatchResult is delivered with matchEnded.
type MatchResult struct {
	WinnerID string                 `json:"winnerId"`
	Duration float64                `json:"duration"`
	Stats    map[string]PlayerStats `json:"stats,omitempty"`
}

// ChatEvent is a room chat line.
type ChatEvent struct {
	PlayerID string `json:"playerId"`
	Message  string `json:"message"`
}

// CombatEventKind names a passthrough combat event.
type CombatEventKind string

const (
	CombatPlayerHit        CombatEventKind = "playerHit"
	CombatPlayerKO         CombatEventKind = "playerKO"
	CombatPlayerRespawn    CombatEventKind = "playerRespawn"
	CombatStageHazard      CombatEventKind = "stageHazard"
	CombatPowerupSpawn     CombatEventKind = "powerupSpawn"
	CombatPowerupCollected CombatEventKind = "powerupCollected"
	CombatMatchPaused      CombatEventKind = "matchPaused"
	CombatMatchResumed     CombatEventKind = "matchResumed"
	CombatMatchTimeout     CombatEventKind = "matchTimeout"
)

// CombatEvent is a tagged passthrough event. Only the kinds above are ever
// dispatched; anything else is dropped and logged at the envelope layer.
type CombatEvent struct {
	Kind CombatEventKind
	Data json.RawMessage
}

var combatKinds = map[string]CombatEventKind{
	string(CombatPlayerHit):        CombatPlayerHit,
	string(CombatPlayerKO):         CombatPlayerKO,
	string(CombatPlayerRespawn):    CombatPlayerRespawn,
	string(CombatStageHazard):      CombatStageHazard,
	string(CombatPowerupSpawn):     CombatPowerupSpawn,
	string(CombatPowerupCollected): CombatPowerupCollected,
	string(CombatMatchPaused):      CombatMatchPaused,
	string(CombatMatchResumed):     CombatMatchResumed,
	string(CombatMatchTimeout):     CombatMatchTimeout,
}

// Connection maintenance payloads.

type pingPayload struct {
	Nonce string `json:"nonce"`
	TS    int64  `json:"ts"`
}

type serverErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
