package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryJoinResolutionOrder(t *testing.T) {
	t.Parallel()
	reg := newPlayerRegistry(MaxSeats)

	s1 := &fakeSession{}
	p, outcome, stolen, err := reg.resolveJoin(s1, "Ada", false, PhaseLobby)
	require.NoError(t, err)
	assert.Equal(t, joinCreated, outcome)
	assert.Nil(t, stolen)
	assert.True(t, p.IsHost, "first player in becomes host")
	assert.True(t, p.IsOnline)

	// Same connection joining again is an idempotent rejoin, not a new seat.
	again, outcome, stolen, err := reg.resolveJoin(s1, "Ada", false, PhaseLobby)
	require.NoError(t, err)
	assert.Equal(t, joinRejoined, outcome)
	assert.Nil(t, stolen)
	assert.Same(t, p, again)
	assert.Len(t, reg.Players(), 1)

	// Offline identity plus the same canonical name is a reconnect, even
	// mid-game.
	reg.markOffline(s1)
	s2 := &fakeSession{}
	back, outcome, stolen, err := reg.resolveJoin(s2, "  ADA ", false, PhaseVoting)
	require.NoError(t, err)
	assert.Equal(t, joinReconnected, outcome)
	assert.Nil(t, stolen)
	assert.Same(t, p, back)
	assert.True(t, back.IsOnline)

	// A second device claiming an online name steals the session; the caller
	// gets the displaced connection back to close.
	s3 := &fakeSession{}
	taken, outcome, stolen, err := reg.resolveJoin(s3, "ada", false, PhaseVoting)
	require.NoError(t, err)
	assert.Equal(t, joinStolen, outcome)
	assert.Same(t, p, taken)
	require.NotNil(t, stolen)
	assert.Same(t, NetworkSession(s2), stolen)
	assert.Same(t, p, reg.bySession(s3))
	assert.Nil(t, reg.bySession(s2))
}

func TestRegistryJoinRejections(t *testing.T) {
	t.Parallel()

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()
		reg := newPlayerRegistry(MaxSeats)
		_, _, _, err := reg.resolveJoin(&fakeSession{}, "   ", false, PhaseLobby)
		assert.ErrorIs(t, err, ErrNameRequired)
	})

	t.Run("new player mid-game", func(t *testing.T) {
		t.Parallel()
		reg := newPlayerRegistry(MaxSeats)
		_, _, _, err := reg.resolveJoin(&fakeSession{}, "Ada", true, PhaseLobby)
		require.NoError(t, err)
		_, _, _, err = reg.resolveJoin(&fakeSession{}, "Grace", false, PhaseAnswering)
		assert.ErrorIs(t, err, ErrGameInProgress)
	})

	t.Run("room full counts only non-host seats", func(t *testing.T) {
		t.Parallel()
		reg := newPlayerRegistry(2)
		_, _, _, err := reg.resolveJoin(&fakeSession{}, "Host", true, PhaseLobby)
		require.NoError(t, err)
		_, _, _, err = reg.resolveJoin(&fakeSession{}, "Ada", false, PhaseLobby)
		require.NoError(t, err)
		_, _, _, err = reg.resolveJoin(&fakeSession{}, "Grace", false, PhaseLobby)
		require.NoError(t, err)
		_, _, _, err = reg.resolveJoin(&fakeSession{}, "Edsger", false, PhaseLobby)
		assert.ErrorIs(t, err, ErrRoomFull)
	})
}

func TestRegistryNameTrimming(t *testing.T) {
	t.Parallel()
	reg := newPlayerRegistry(MaxSeats)

	long := strings.Repeat("ab", MaxNameLength)
	p, _, _, err := reg.resolveJoin(&fakeSession{}, "  "+long+"  ", true, PhaseLobby)
	require.NoError(t, err)
	assert.Len(t, []rune(p.Name), MaxNameLength)
}

func TestRegistryRemoveReassignsHost(t *testing.T) {
	t.Parallel()
	reg := newPlayerRegistry(MaxSeats)

	host, _, _, err := reg.resolveJoin(&fakeSession{}, "Host", true, PhaseLobby)
	require.NoError(t, err)
	ada, _, _, err := reg.resolveJoin(&fakeSession{}, "Ada", false, PhaseLobby)
	require.NoError(t, err)
	grace, _, _, err := reg.resolveJoin(&fakeSession{}, "Grace", false, PhaseLobby)
	require.NoError(t, err)

	reg.remove(host)
	assert.Nil(t, reg.byID(host.ID))
	assert.True(t, ada.IsHost)
	assert.False(t, grace.IsHost)
	assert.Same(t, ada, reg.host())

	reg.remove(grace)
	reg.remove(ada)
	assert.Empty(t, reg.Players())
}

func TestRegistryMarkOffline(t *testing.T) {
	t.Parallel()
	reg := newPlayerRegistry(MaxSeats)

	s := &fakeSession{}
	p, _, _, err := reg.resolveJoin(s, "Ada", true, PhaseLobby)
	require.NoError(t, err)
	p.Score = 3000

	got := reg.markOffline(s)
	require.Same(t, p, got)
	assert.False(t, p.IsOnline)
	assert.Equal(t, 3000, p.Score, "score survives disconnect")
	assert.Nil(t, reg.bySession(s))

	assert.Nil(t, reg.markOffline(&fakeSession{}), "unknown session is a no-op")
}
