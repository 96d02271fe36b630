package netplay

import "encoding/json"

// Event names, client -> server. Wire-level, case-sensitive.
const (
	outAuthenticate    = "authenticate"
	outJoinQueue       = "joinQueue"
	outLeaveQueue      = "leaveQueue"
	outJoinRoom        = "joinRoom"
	outLeaveRoom       = "leaveRoom"
	outCreateRoom      = "createRoom"
	outSelectCharacter = "selectCharacter"
	outSelectStage     = "selectStage"
	outPlayerReady     = "playerReady"
	outPlayerInput     = "playerInput"
	outPlayerPosition  = "playerPosition"
	outChatMessage     = "chatMessage"
	outRequestSync     = "requestGameStateSync"
	outRequestRoom     = "requestRoomState"
	outStartGame       = "startGame"
	outPing            = "ping"
)

// Event names, server -> client.
const (
	inAuthenticated      = "authenticated"
	inAuthFailed         = "authenticationFailed"
	inQueueJoined        = "queueJoined"
	inMatchFound         = "matchFound"
	inRoomJoined         = "roomJoined"
	inPlayerJoined       = "playerJoined"
	inPlayerLeft         = "playerLeft"
	inCharacterSelected  = "characterSelected"
	inStageSelected      = "stageSelected"
	inPlayerReadyChanged = "playerReadyChanged"
	inGameStarted        = "gameStarted"
	inGameStarting       = "gameStarting"
	inGameReady          = "gameReady"
	inRoomStateSync      = "roomStateSync"
	inGameStateSync      = "gameStateSync"
	inGameStateUpdate    = "gameStateUpdate"
	inPlayerUpdate       = "playerUpdate"
	inMatchEnded         = "matchEnded"
	inChatMessage        = "chatMessage"
	inError              = "error"
	inRoomError          = "roomError"
	inPong               = "pong"
)

// ClientMessage is the envelope from client to server.
type ClientMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ServerMessage is the envelope server -> client.
type ServerMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
