package netplay

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stagefall/netplay-sdk-go/netplay/internal"
	"github.com/stagefall/netplay-sdk-go/netplay/rest"
)

// connectAttempt lets concurrent Connect callers observe one in-flight dial.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// Client is the netplay SDK entry point. It owns the websocket channel
// exclusively and drives the connection lifecycle
// disconnected -> connecting -> connected -> authenticated.
type Client struct {
	cfg    Config
	logger *logrus.Logger
	id     uuid.UUID

	// REST is the bootstrap side-channel for static game configuration.
	// Nil unless Config.RESTBaseURL is set.
	REST *rest.Client

	// Room is the materialized view of the current server room.
	Room *RoomSync

	// Tracker observes connection quality and records classified errors.
	Tracker *Tracker

	dispatcher *Dispatcher

	mu                sync.Mutex
	state             ConnectionState
	session           Session
	conn              *internal.Conn
	writeCh           chan ClientMessage
	cancel            context.CancelFunc
	attempt           *connectAttempt
	reconnectAttempts int

	onStateChanged func(StateEvent)
}

// NewClient constructs a client with the provided config.
// Use DefaultConfig() as a starting point and modify as needed.
// Set timeouts to 0 to disable them.
func NewClient(cfg Config) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	c := &Client{
		cfg:    cfg,
		logger: logger,
		id:     uuid.New(),
		state:  StateDisconnected,
	}
	c.Room = newRoomSync(logger)
	c.Tracker = newTracker(logger)
	c.dispatcher = newDispatcher(logger, c.Room, c.Tracker, c.trySend)
	if cfg.RESTBaseURL != "" {
		c.REST = rest.NewClient(cfg.RESTBaseURL)
	}
	return c
}

// SetLogger overrides the logger (optional).
func (c *Client) SetLogger(l *logrus.Logger) {
	if l == nil {
		return
	}
	c.logger = l
	c.Room.logger = l
	c.Tracker.logger = l
	c.dispatcher.logger = l
}

// Callback registration. Register before Connect; callbacks run on the read
// loop goroutine.

func (c *Client) OnStateChanged(fn func(StateEvent)) { c.onStateChanged = fn }

func (c *Client) OnQueueJoined(fn func())                     { c.dispatcher.onQueueJoined = fn }
func (c *Client) OnMatchFound(fn func(MatchFoundEvent))       { c.dispatcher.onMatchFound = fn }
func (c *Client) OnRoomChanged(fn func(RoomData))             { c.Room.OnChange(fn) }
func (c *Client) OnGameStarting(fn func())                    { c.dispatcher.onGameStarting = fn }
func (c *Client) OnGameReady(fn func())                       { c.dispatcher.onGameReady = fn }
func (c *Client) OnGameStateUpdate(fn func(GameStateMessage)) { c.dispatcher.onGameState = fn }
func (c *Client) OnGameStateSync(fn func(GameStateMessage))   { c.dispatcher.onGameStateSync = fn }
func (c *Client) OnPlayerUpdate(fn func(PlayerUpdateEvent))   { c.dispatcher.onPlayerUpdate = fn }
func (c *Client) OnMatchEnded(fn func(MatchResult))           { c.dispatcher.onMatchEnded = fn }
func (c *Client) OnChat(fn func(ChatEvent))                   { c.dispatcher.onChat = fn }
func (c *Client) OnCombatEvent(fn func(CombatEvent))          { c.dispatcher.onCombat = fn }
func (c *Client) OnError(fn func(error))                      { c.dispatcher.onError = fn }

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a snapshot of the authenticated identity.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// ReconnectAttempts reports dial attempts since the last successful connect.
func (c *Client) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectAttempts
}

// MaxReconnectAttempts returns the configured attempt budget.
func (c *Client) MaxReconnectAttempts() int {
	return c.maxAttempts()
}

// CanReconnect reports whether the attempt budget has not been exhausted.
// Once it returns false, callers should surface a manual retry affordance
// instead of dialing again automatically.
func (c *Client) CanReconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectAttempts < c.maxAttempts()
}

func (c *Client) maxAttempts() int {
	if c.cfg.MaxReconnectAttempts > 0 {
		return c.cfg.MaxReconnectAttempts
	}
	return DefaultConfig().MaxReconnectAttempts
}

// Connect opens the channel and blocks until it is established or the
// attempt fails. Calling it while already connected is a no-op; calling it
// while another Connect is in flight joins that attempt instead of opening
// a second channel.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return WrapError(ErrorInvalidConfig, "invalid URL", err)
	}

	c.mu.Lock()
	switch c.state {
	case StateConnected, StateAuthenticated:
		c.mu.Unlock()
		return nil
	case StateConnecting:
		attempt := c.attempt
		c.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	attempt := &connectAttempt{done: make(chan struct{})}
	c.attempt = attempt
	notify := c.transitionLocked(StateConnecting, nil)
	c.mu.Unlock()
	notify()

	err = c.dial(ctx, u.String())

	c.mu.Lock()
	attempt.err = err
	if c.attempt == attempt {
		c.attempt = nil
	}
	c.mu.Unlock()
	close(attempt.done)
	return err
}

func (c *Client) dial(ctx context.Context, endpoint string) error {
	dialCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	c.mu.Lock()
	budget := c.maxAttempts() - c.reconnectAttempts
	if budget < 1 {
		// Manual retry after exhaustion: one more dial, with the counter
		// held at the cap so ReconnectAttempts never reads past it.
		budget = 1
		c.reconnectAttempts = c.maxAttempts() - 1
	}
	c.mu.Unlock()

	ws, err := internal.Dial(dialCtx, endpoint, budget, c.cfg.ReconnectInterval, func(int) {
		c.mu.Lock()
		c.reconnectAttempts++
		c.mu.Unlock()
	})
	if err != nil {
		code := ErrorConnection
		if errors.Is(err, context.DeadlineExceeded) {
			code = ErrorTimeout
		}
		c.Tracker.AddError(ErrorRecord{
			Type:      ErrTypeConnection,
			Message:   "connect failed: " + err.Error(),
			Timestamp: time.Now(),
			Critical:  true,
		})
		wrapped := WrapError(code, "connect failed", err)
		c.mu.Lock()
		notify := c.transitionLocked(StateError, wrapped)
		c.mu.Unlock()
		notify()
		return wrapped
	}

	runCtx, cancel := context.WithCancel(context.Background())
	conn := internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	writeCh := make(chan ClientMessage, 16)

	c.mu.Lock()
	c.conn = conn
	c.writeCh = writeCh
	c.cancel = cancel
	c.reconnectAttempts = 0
	notify := c.transitionLocked(StateConnected, nil)
	c.mu.Unlock()
	notify()

	c.logger.Infof("client %s connected to %s", c.id, endpoint)

	go c.readLoop(runCtx, conn)
	go c.writeLoop(runCtx, conn, writeCh)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(runCtx)
	}
	return nil
}

// Disconnect synchronously tears the channel down, clears the session and
// room view, and leaves the client in StateDisconnected. Safe to call from
// any state, any number of times.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.writeCh = nil
	c.session = Session{}
	notify := c.transitionLocked(StateDisconnected, nil)
	c.mu.Unlock()

	c.Room.clear()
	notify()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
}

// handleTransportLoss is the involuntary counterpart of Disconnect: the read
// or write loop saw the channel drop underneath us.
func (c *Client) handleTransportLoss(err error) {
	c.Tracker.AddError(ErrorRecord{
		Type:      ErrTypeConnection,
		Message:   "connection lost: " + err.Error(),
		Timestamp: time.Now(),
		Critical:  true,
	})
	c.dispatcher.failAuth(err)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.writeCh = nil
	c.session = Session{}
	notify := c.transitionLocked(StateDisconnected, err)
	c.mu.Unlock()

	c.Room.clear()
	notify()
	if conn != nil {
		_ = conn.Close(websocket.StatusInternalError, "transport loss")
	}
	c.dispatcher.fireError(WrapError(ErrorConnection, "connection lost", err))
}

// transitionLocked changes state and returns the pending callback
// notification. Caller holds c.mu and must invoke the result after
// unlocking.
func (c *Client) transitionLocked(next ConnectionState, err error) func() {
	old := c.state
	c.state = next
	fn := c.onStateChanged
	if fn == nil || old == next {
		return func() {}
	}
	ev := StateEvent{OldState: old, NewState: next, Error: err}
	return func() { fn(ev) }
}

func (c *Client) readLoop(ctx context.Context, conn *internal.Conn) {
	for {
		var msg ServerMessage
		if err := conn.Read(ctx, &msg); err != nil {
			if isExpectedDisconnect(ctx, err) {
				return
			}
			c.logger.Warnf("read loop exit: %v", err)
			c.handleTransportLoss(err)
			return
		}
		c.dispatcher.Dispatch(msg)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *internal.Conn, writeCh <-chan ClientMessage) {
	for {
		select {
		case msg := <-writeCh:
			if err := conn.Write(ctx, msg); err != nil {
				if isExpectedDisconnect(ctx, err) {
					return
				}
				c.logger.Warnf("write loop exit: %v", err)
				c.handleTransportLoss(err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			timeout := c.cfg.PingTimeout
			if timeout <= 0 {
				timeout = 2 * c.cfg.PingInterval
			}
			c.Tracker.expirePending(now, timeout)
			nonce := uuid.NewString()
			c.Tracker.probeSent(nonce, time.Now())
			c.trySend(ClientMessage{Event: outPing, Data: pingPayload{Nonce: nonce, TS: time.Now().UnixMilli()}})
		}
	}
}

// send queues a message for the write loop, failing fast when the channel
// is down.
func (c *Client) send(ctx context.Context, msg ClientMessage) error {
	c.mu.Lock()
	writeCh := c.writeCh
	open := c.state == StateConnected || c.state == StateAuthenticated
	c.mu.Unlock()
	if !open || writeCh == nil {
		return NewError(ErrorNotConnected, "not connected")
	}
	select {
	case writeCh <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trySend is the non-blocking variant used by probes and keepalive echoes.
// A full write queue drops the message rather than stalling the caller.
func (c *Client) trySend(msg ClientMessage) {
	c.mu.Lock()
	writeCh := c.writeCh
	c.mu.Unlock()
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- msg:
	default:
		c.logger.Debugf("write queue full, dropped %s", msg.Event)
	}
}

// Outbound operations. Each requires an open channel; the server's echo is
// what ultimately mutates the room view.

func (c *Client) JoinQueue(ctx context.Context) error {
	return c.send(ctx, ClientMessage{Event: outJoinQueue})
}

func (c *Client) LeaveQueue(ctx context.Context) error {
	return c.send(ctx, ClientMessage{Event: outLeaveQueue})
}

func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	return c.send(ctx, ClientMessage{Event: outJoinRoom, Data: joinRoomRequest{RoomID: roomID}})
}

func (c *Client) LeaveRoom(ctx context.Context) error {
	if err := c.send(ctx, ClientMessage{Event: outLeaveRoom}); err != nil {
		return err
	}
	// The server emits no leave confirmation; the local view is dropped as
	// soon as the request is queued.
	c.Room.clear()
	return nil
}

func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) error {
	return c.send(ctx, ClientMessage{Event: outCreateRoom, Data: req})
}

func (c *Client) SelectCharacter(ctx context.Context, character CharacterType) error {
	return c.send(ctx, ClientMessage{Event: outSelectCharacter, Data: map[string]CharacterType{"character": character}})
}

func (c *Client) SelectStage(ctx context.Context, stage StageType) error {
	return c.send(ctx, ClientMessage{Event: outSelectStage, Data: map[string]StageType{"stage": stage}})
}

func (c *Client) SetReady(ctx context.Context, ready bool) error {
	return c.send(ctx, ClientMessage{Event: outPlayerReady, Data: map[string]bool{"ready": ready}})
}

func (c *Client) SendInput(ctx context.Context, input PlayerInputMessage) error {
	return c.send(ctx, ClientMessage{Event: outPlayerInput, Data: input})
}

func (c *Client) SendPosition(ctx context.Context, pos PlayerPositionMessage) error {
	return c.send(ctx, ClientMessage{Event: outPlayerPosition, Data: pos})
}

func (c *Client) SendChat(ctx context.Context, message string) error {
	return c.send(ctx, ClientMessage{Event: outChatMessage, Data: message})
}

func (c *Client) RequestGameStateSync(ctx context.Context) error {
	return c.send(ctx, ClientMessage{Event: outRequestSync})
}

func (c *Client) RequestRoomState(ctx context.Context) error {
	return c.send(ctx, ClientMessage{Event: outRequestRoom})
}

func (c *Client) StartGame(ctx context.Context) error {
	return c.send(ctx, ClientMessage{Event: outStartGame})
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
