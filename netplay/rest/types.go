package rest

// GameConfig is the static configuration payload: sections of key/value
// tunables (physics constants, timers, matchmaking knobs) keyed by section
// name. Fetched once at startup, before any socket is opened.
type GameConfig map[string]map[string]any

// configResponse is the wire shape of GET /config.
type configResponse struct {
	Success bool       `json:"success"`
	Config  GameConfig `json:"config"`
	Error   string     `json:"error,omitempty"`
}

// CharacterInfo describes one playable character in the static catalog.
type CharacterInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Speed       float64 `json:"speed"`
	JumpHeight  float64 `json:"jumpHeight"`
	Description string  `json:"description,omitempty"`
}

// StageInfo describes one stage in the static catalog.
type StageInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
	Hazards    bool   `json:"hazards"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
