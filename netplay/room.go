package netplay

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// RoomSync maintains the client's view of the current room as a materialized
// view of the server's event stream. It has no authority of its own: every
// mutation here is the application of a server-pushed event, and targeted
// updates for players the view does not know about are tolerated as event
// races, not errors.
type RoomSync struct {
	mu     sync.Mutex
	logger *logrus.Logger

	room   *RoomData
	frozen bool // set by matchEnded; per-player events are ignored until the next roomJoined

	onChange func(RoomData)
}

func newRoomSync(logger *logrus.Logger) *RoomSync {
	return &RoomSync{logger: logger}
}

// OnChange registers a callback fired with a snapshot after every applied
// event. The callback runs outside the synchronizer's lock, so it may call
// back into the RoomSync.
func (rs *RoomSync) OnChange(fn func(RoomData)) {
	rs.mu.Lock()
	rs.onChange = fn
	rs.mu.Unlock()
}

// Snapshot returns a copy of the current room view. ok is false when the
// client is not in a room.
func (rs *RoomSync) Snapshot() (RoomData, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.room == nil {
		return RoomData{}, false
	}
	return copyRoom(rs.room), true
}

// InRoom reports whether a room view exists.
func (rs *RoomSync) InRoom() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.room != nil
}

// clear drops the view entirely. Called on disconnect and on leaveRoom.
func (rs *RoomSync) clear() {
	rs.mu.Lock()
	rs.room = nil
	rs.frozen = false
	rs.mu.Unlock()
}

func (rs *RoomSync) applyRoomJoined(data RoomData) {
	rs.mu.Lock()
	room := copyRoom(&data)
	rs.room = &room
	rs.frozen = false
	notify := rs.changedLocked()
	rs.mu.Unlock()
	notify()
}

func (rs *RoomSync) applyPlayerJoined(p NetworkPlayer) {
	rs.mu.Lock()
	if rs.room == nil || rs.frozen {
		rs.mu.Unlock()
		return
	}
	if existing := rs.room.Player(p.ID); existing != nil {
		*existing = p
	} else {
		rs.room.Players = append(rs.room.Players, p)
	}
	notify := rs.changedLocked()
	rs.mu.Unlock()
	notify()
}

func (rs *RoomSync) applyPlayerLeft(playerID string) {
	rs.mu.Lock()
	if rs.room == nil || rs.frozen {
		rs.mu.Unlock()
		return
	}
	notify := func() {}
	for i := range rs.room.Players {
		if rs.room.Players[i].ID == playerID {
			rs.room.Players = append(rs.room.Players[:i], rs.room.Players[i+1:]...)
			notify = rs.changedLocked()
			break
		}
	}
	// Absent id: idempotent no-op.
	rs.mu.Unlock()
	notify()
}

func (rs *RoomSync) applyCharacterSelected(playerID string, character CharacterType) {
	rs.mu.Lock()
	if rs.room == nil || rs.frozen {
		rs.mu.Unlock()
		return
	}
	p := rs.room.Player(playerID)
	if p == nil {
		// The select may have raced ahead of the join event.
		rs.mu.Unlock()
		rs.logger.Debugf("characterSelected for unknown player %s", playerID)
		return
	}
	p.Character = &character
	notify := rs.changedLocked()
	rs.mu.Unlock()
	notify()
}

func (rs *RoomSync) applyStageSelected(stage StageType) {
	rs.mu.Lock()
	if rs.room == nil || rs.frozen {
		rs.mu.Unlock()
		return
	}
	rs.room.Stage = &stage
	notify := rs.changedLocked()
	rs.mu.Unlock()
	notify()
}

func (rs *RoomSync) applyPlayerReadyChanged(playerID string, ready bool) {
	rs.mu.Lock()
	if rs.room == nil || rs.frozen {
		rs.mu.Unlock()
		return
	}
	p := rs.room.Player(playerID)
	if p == nil {
		rs.mu.Unlock()
		rs.logger.Debugf("playerReadyChanged for unknown player %s", playerID)
		return
	}
	p.Ready = ready
	notify := rs.changedLocked()
	rs.mu.Unlock()
	notify()
}

func (rs *RoomSync) applyGameStarted() {
	rs.mu.Lock()
	if rs.room == nil || rs.frozen {
		rs.mu.Unlock()
		return
	}
	rs.room.State = RoomPlaying
	notify := rs.changedLocked()
	rs.mu.Unlock()
	notify()
}

// applyMatchEnded finalizes the room: the view switches to finished and
// freezes, so stray per-player events after the result cannot disturb it.
func (rs *RoomSync) applyMatchEnded(result MatchResult) {
	rs.mu.Lock()
	if rs.room == nil {
		rs.mu.Unlock()
		return
	}
	rs.room.State = RoomFinished
	for id, stats := range result.Stats {
		if p := rs.room.Player(id); p != nil {
			p.Stats = stats
		}
	}
	rs.frozen = true
	notify := rs.changedLocked()
	rs.mu.Unlock()
	notify()
}

// changedLocked captures the callback and a snapshot while the lock is held
// and returns the pending notification. Caller invokes the result after
// unlocking, so the callback can safely re-enter the synchronizer.
func (rs *RoomSync) changedLocked() func() {
	fn := rs.onChange
	if fn == nil || rs.room == nil {
		return func() {}
	}
	snap := copyRoom(rs.room)
	return func() { fn(snap) }
}

func copyRoom(r *RoomData) RoomData {
	out := *r
	out.Players = make([]NetworkPlayer, len(r.Players))
	copy(out.Players, r.Players)
	return out
}
