package netplay

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// authResult carries the outcome of the authenticate handshake to the waiter.
// err is set only when the channel itself failed mid-handshake.
type authResult struct {
	userID string
	reason string
	ok     bool
	err    error
}

// Dispatcher routes server messages to the room synchronizer, the metrics
// tracker, the pending handshake waiter, and registered callbacks. Unknown
// event names are logged and dropped, never forwarded untyped.
type Dispatcher struct {
	logger  *logrus.Logger
	room    *RoomSync
	tracker *Tracker
	reply   func(ClientMessage) // best-effort echo path for server pings

	mu         sync.Mutex
	authWaiter chan authResult

	onQueueJoined   func()
	onMatchFound    func(MatchFoundEvent)
	onGameStarting  func()
	onGameReady     func()
	onGameStateSync func(GameStateMessage)
	onGameState     func(GameStateMessage)
	onPlayerUpdate  func(PlayerUpdateEvent)
	onMatchEnded    func(MatchResult)
	onChat          func(ChatEvent)
	onCombat        func(CombatEvent)
	onError         func(error)
}

func newDispatcher(logger *logrus.Logger, room *RoomSync, tracker *Tracker, reply func(ClientMessage)) *Dispatcher {
	return &Dispatcher{logger: logger, room: room, tracker: tracker, reply: reply}
}

// registerAuthWaiter installs the one-shot channel for a handshake attempt.
// Only one handshake may be in flight at a time.
func (d *Dispatcher) registerAuthWaiter() (chan authResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.authWaiter != nil {
		return nil, NewError(ErrorAlreadyAuthenticating, "authenticate already in flight")
	}
	ch := make(chan authResult, 1)
	d.authWaiter = ch
	return ch, nil
}

// clearAuthWaiter removes the waiter if it is still the installed one.
// Called on every handshake exit path so a late response cannot resolve a
// future attempt.
func (d *Dispatcher) clearAuthWaiter(ch chan authResult) {
	d.mu.Lock()
	if d.authWaiter == ch {
		d.authWaiter = nil
	}
	d.mu.Unlock()
}

// failAuth aborts a pending handshake when the transport drops. No-op when
// no handshake is in flight.
func (d *Dispatcher) failAuth(err error) {
	d.mu.Lock()
	ch := d.authWaiter
	d.authWaiter = nil
	d.mu.Unlock()
	if ch != nil {
		ch <- authResult{err: err}
	}
}

func (d *Dispatcher) deliverAuth(res authResult) {
	d.mu.Lock()
	ch := d.authWaiter
	d.authWaiter = nil
	d.mu.Unlock()
	if ch == nil {
		d.logger.Debugf("late auth response dropped (ok=%v)", res.ok)
		return
	}
	ch <- res
}

// Dispatch routes one server message.
func (d *Dispatcher) Dispatch(msg ServerMessage) {
	switch msg.Event {
	case inAuthenticated:
		var ev authSuccess
		if !d.decode(msg, &ev) {
			return
		}
		d.deliverAuth(authResult{ok: true, userID: ev.UserID})
	case inAuthFailed:
		var ev authFailure
		if !d.decode(msg, &ev) {
			return
		}
		d.deliverAuth(authResult{ok: false, reason: ev.Error})

	case inQueueJoined:
		if d.onQueueJoined != nil {
			d.onQueueJoined()
		}
	case inMatchFound:
		var ev MatchFoundEvent
		if !d.decode(msg, &ev) {
			return
		}
		if d.onMatchFound != nil {
			d.onMatchFound(ev)
		}

	case inRoomJoined, inRoomStateSync:
		var ev RoomData
		if !d.decode(msg, &ev) {
			return
		}
		d.room.applyRoomJoined(ev)
	case inPlayerJoined:
		var ev NetworkPlayer
		if !d.decode(msg, &ev) {
			return
		}
		d.room.applyPlayerJoined(ev)
	case inPlayerLeft:
		var ev playerLeftEvent
		if !d.decode(msg, &ev) {
			return
		}
		d.room.applyPlayerLeft(ev.PlayerID)
	case inCharacterSelected:
		var ev characterSelectedEvent
		if !d.decode(msg, &ev) {
			return
		}
		d.room.applyCharacterSelected(ev.PlayerID, ev.Character)
	case inStageSelected:
		var ev stageSelectedEvent
		if !d.decode(msg, &ev) {
			return
		}
		d.room.applyStageSelected(ev.Stage)
	case inPlayerReadyChanged:
		var ev playerReadyEvent
		if !d.decode(msg, &ev) {
			return
		}
		d.room.applyPlayerReadyChanged(ev.PlayerID, ev.Ready)
	case inGameStarted:
		d.room.applyGameStarted()
	case inGameStarting:
		if d.onGameStarting != nil {
			d.onGameStarting()
		}
	case inGameReady:
		if d.onGameReady != nil {
			d.onGameReady()
		}
	case inMatchEnded:
		var ev MatchResult
		if !d.decode(msg, &ev) {
			return
		}
		d.room.applyMatchEnded(ev)
		if d.onMatchEnded != nil {
			d.onMatchEnded(ev)
		}

	case inGameStateUpdate:
		var ev GameStateMessage
		if !d.decode(msg, &ev) {
			return
		}
		if d.onGameState != nil {
			d.onGameState(ev)
		}
	case inGameStateSync:
		var ev GameStateMessage
		if !d.decode(msg, &ev) {
			return
		}
		if d.onGameStateSync != nil {
			d.onGameStateSync(ev)
		}
	case inPlayerUpdate:
		var ev PlayerUpdateEvent
		if !d.decode(msg, &ev) {
			return
		}
		if d.onPlayerUpdate != nil {
			d.onPlayerUpdate(ev)
		}
	case inChatMessage:
		var ev ChatEvent
		if !d.decode(msg, &ev) {
			return
		}
		if d.onChat != nil {
			d.onChat(ev)
		}

	case inError:
		var ev serverErrorEvent
		if !d.decode(msg, &ev) {
			return
		}
		d.tracker.AddError(ErrorRecord{Type: ErrTypeGame, Message: ev.Message, Code: ev.Code, Timestamp: time.Now()})
		d.fireError(NewError(ErrorUnknown, ev.Message))
	case inRoomError:
		var ev serverErrorEvent
		if !d.decode(msg, &ev) {
			return
		}
		d.tracker.AddError(ErrorRecord{Type: ErrTypeRoom, Message: ev.Message, Code: ev.Code, Timestamp: time.Now()})
		d.fireError(NewError(ErrorRoomRejected, ev.Message))

	case inPong:
		var ev pingPayload
		if !d.decode(msg, &ev) {
			return
		}
		d.tracker.probeAcked(ev.Nonce, time.Now())
	case outPing:
		// Server-initiated keepalive: echo it back.
		var ev pingPayload
		if !d.decode(msg, &ev) {
			return
		}
		if d.reply != nil {
			d.reply(ClientMessage{Event: inPong, Data: ev})
		}

	default:
		if _, ok := combatKinds[msg.Event]; ok {
			if d.onCombat != nil {
				d.onCombat(CombatEvent{Kind: CombatEventKind(msg.Event), Data: msg.Data})
			}
			return
		}
		d.logger.Warnf("unknown server event %q dropped", msg.Event)
	}
}

// decode unmarshals the payload, recording a non-fatal error classified by
// the event's family on failure. Malformed events degrade to no-ops rather
// than aborting the session.
func (d *Dispatcher) decode(msg ServerMessage, v any) bool {
	if err := UnmarshalData(msg.Data, v); err != nil {
		d.logger.Warnf("malformed %s payload: %v", msg.Event, err)
		d.tracker.AddError(ErrorRecord{Type: payloadErrorType(msg.Event), Message: "malformed " + msg.Event + " payload", Timestamp: time.Now()})
		d.fireError(WrapError(ErrorSerialization, "failed to unmarshal "+msg.Event+" event", err))
		return false
	}
	return true
}

// payloadErrorType maps an event name to the taxonomy bucket its failures
// belong to.
func payloadErrorType(event string) ErrorType {
	switch event {
	case inAuthenticated, inAuthFailed:
		return ErrTypeAuthentication
	case inPong, outPing:
		return ErrTypeConnection
	case inGameStateUpdate, inGameStateSync, inPlayerUpdate, inChatMessage, inError:
		return ErrTypeGame
	default:
		if _, ok := combatKinds[event]; ok {
			return ErrTypeGame
		}
		return ErrTypeRoom
	}
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
