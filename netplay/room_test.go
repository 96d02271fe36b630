package netplay

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoomSync() *RoomSync {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return newRoomSync(logger)
}

func waitingRoom(id string) RoomData {
	return RoomData{ID: id, Players: []NetworkPlayer{}, MaxPlayers: 4, State: RoomWaiting}
}

func TestRoomJoinedReplacesWholesale(t *testing.T) {
	rs := testRoomSync()
	rs.applyRoomJoined(RoomData{ID: "r1", Players: []NetworkPlayer{{ID: "p1"}}, MaxPlayers: 2, State: RoomPlaying})
	rs.applyRoomJoined(waitingRoom("r2"))

	room, ok := rs.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "r2", room.ID)
	assert.Empty(t, room.Players)
	assert.Equal(t, RoomWaiting, room.State)
}

func TestPlayerJoinLeaveNoDuplicates(t *testing.T) {
	rs := testRoomSync()
	rs.applyRoomJoined(waitingRoom("r1"))

	rs.applyPlayerJoined(NetworkPlayer{ID: "p1", Name: "alice"})
	rs.applyPlayerJoined(NetworkPlayer{ID: "p2", Name: "bob"})
	rs.applyPlayerJoined(NetworkPlayer{ID: "p1", Name: "alice2"}) // re-join updates in place
	rs.applyPlayerLeft("p2")
	rs.applyPlayerLeft("p2") // idempotent
	rs.applyPlayerLeft("ghost")

	room, ok := rs.Snapshot()
	require.True(t, ok)
	require.Len(t, room.Players, 1)
	assert.Equal(t, "p1", room.Players[0].ID)
	assert.Equal(t, "alice2", room.Players[0].Name)
}

func TestPlayerSetMatchesJoinsMinusLeaves(t *testing.T) {
	rs := testRoomSync()
	rs.applyRoomJoined(waitingRoom("r1"))

	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("p%d", i)
		rs.applyPlayerJoined(NetworkPlayer{ID: id})
		// Interleave unrelated events.
		rs.applyStageSelected(StageType("SKYDOCK"))
		if i%2 == 0 {
			rs.applyPlayerLeft(id)
		}
	}

	room, ok := rs.Snapshot()
	require.True(t, ok)
	seen := map[string]bool{}
	for _, p := range room.Players {
		require.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
	assert.Equal(t, map[string]bool{"p1": true, "p3": true, "p5": true, "p7": true}, seen)
}

func TestTargetedUpdatesForAbsentPlayerAreNoOps(t *testing.T) {
	rs := testRoomSync()
	rs.applyRoomJoined(waitingRoom("r1"))

	require.NotPanics(t, func() {
		rs.applyCharacterSelected("ghost", CharacterType("TITAN"))
		rs.applyPlayerReadyChanged("ghost", true)
	})

	room, ok := rs.Snapshot()
	require.True(t, ok)
	assert.Empty(t, room.Players)
	assert.Equal(t, RoomWaiting, room.State)
}

func TestReadyAndCharacterFlow(t *testing.T) {
	rs := testRoomSync()
	rs.applyRoomJoined(waitingRoom("r1"))
	rs.applyPlayerJoined(NetworkPlayer{ID: "p1", Name: "alice"})
	rs.applyCharacterSelected("p1", CharacterType("TITAN"))
	rs.applyPlayerReadyChanged("p1", true)

	room, ok := rs.Snapshot()
	require.True(t, ok)
	require.Len(t, room.Players, 1)
	p := room.Players[0]
	assert.True(t, p.Ready)
	require.NotNil(t, p.Character)
	assert.Equal(t, CharacterType("TITAN"), *p.Character)
	assert.Equal(t, RoomWaiting, room.State)
}

func TestMatchEndedFreezesRoom(t *testing.T) {
	rs := testRoomSync()
	rs.applyRoomJoined(waitingRoom("r1"))
	rs.applyPlayerJoined(NetworkPlayer{ID: "p1"})
	rs.applyGameStarted()

	rs.applyMatchEnded(MatchResult{WinnerID: "p1", Stats: map[string]PlayerStats{"p1": {KOs: 3}}})

	// Per-player events after the result must not disturb the final view.
	rs.applyPlayerReadyChanged("p1", true)
	rs.applyPlayerLeft("p1")
	rs.applyPlayerJoined(NetworkPlayer{ID: "p2"})

	room, ok := rs.Snapshot()
	require.True(t, ok)
	assert.Equal(t, RoomFinished, room.State)
	require.Len(t, room.Players, 1)
	assert.Equal(t, 3, room.Players[0].Stats.KOs)
	assert.False(t, room.Players[0].Ready)

	// A fresh roomJoined thaws the view for the next match.
	rs.applyRoomJoined(waitingRoom("r2"))
	rs.applyPlayerJoined(NetworkPlayer{ID: "p3"})
	room, ok = rs.Snapshot()
	require.True(t, ok)
	assert.Len(t, room.Players, 1)
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	rs := testRoomSync()
	var got []RoomData
	rs.OnChange(func(r RoomData) { got = append(got, r) })

	rs.applyRoomJoined(waitingRoom("r1"))
	rs.applyPlayerJoined(NetworkPlayer{ID: "p1"})

	require.Len(t, got, 2)
	// Mutating a delivered snapshot must not leak into the view.
	got[1].Players[0].Ready = true
	room, _ := rs.Snapshot()
	assert.False(t, room.Players[0].Ready)
}

func TestOnChangeMayReenterSynchronizer(t *testing.T) {
	rs := testRoomSync()
	var sawRoom []bool
	rs.OnChange(func(r RoomData) {
		// Callbacks run outside the lock, so accessors must not block here.
		sawRoom = append(sawRoom, rs.InRoom())
		_, _ = rs.Snapshot()
	})

	done := make(chan struct{})
	go func() {
		rs.applyRoomJoined(waitingRoom("r1"))
		rs.applyPlayerJoined(NetworkPlayer{ID: "p1"})
		rs.applyPlayerReadyChanged("p1", true)
		rs.applyPlayerLeft("p1")
		rs.applyMatchEnded(MatchResult{WinnerID: "p1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("apply blocked with a re-entrant OnChange callback")
	}
	assert.Equal(t, []bool{true, true, true, true, true}, sawRoom)
}

func TestClearDropsView(t *testing.T) {
	rs := testRoomSync()
	rs.applyRoomJoined(waitingRoom("r1"))
	rs.clear()
	_, ok := rs.Snapshot()
	assert.False(t, ok)
	assert.False(t, rs.InRoom())
}
