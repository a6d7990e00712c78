package server

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/npezzotti/go-chatapp/internal/types"
	"github.com/stretchr/testify/assert"
)

func newRegistryClient(userId int) *Client {
	return &Client{
		id:            "conn",
		user:          types.User{Id: userId},
		send:          make(chan *ServerMessage, 8),
		presenceReady: make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
}

func TestConnectionRegistry_RegisterLookup(t *testing.T) {
	r := NewConnectionRegistry()
	c := newRegistryClient(1)

	prev := r.Register(c)
	assert.Nil(t, prev, "expected no superseded client on first register")

	got, ok := r.Lookup(1)
	assert.True(t, ok, "expected user to be registered")
	assert.Equal(t, c, got, "expected lookup to return registered client")

	_, ok = r.Lookup(2)
	assert.False(t, ok, "expected unknown user to be absent")

	assert.Equal(t, []int{1}, r.OnlineUserIds())
}

func TestConnectionRegistry_RegisterSupersedes(t *testing.T) {
	r := NewConnectionRegistry()
	older := newRegistryClient(1)
	newer := newRegistryClient(1)

	r.Register(older)
	prev := r.Register(newer)
	assert.Equal(t, older, prev, "expected older client to be returned as superseded")

	got, _ := r.Lookup(1)
	assert.Equal(t, newer, got, "expected last registration to win")
	assert.Len(t, r.Clients(), 1, "expected one entry per user")

	select {
	case <-older.stop:
		t.Error("expected superseded client not to be stopped by the registry")
	default:
	}

	assert.Nil(t, r.Register(newer), "expected re-registering the same client to supersede nothing")
}

func TestConnectionRegistry_StaleUnregister(t *testing.T) {
	r := NewConnectionRegistry()
	older := newRegistryClient(1)
	newer := newRegistryClient(1)

	r.Register(older)
	r.Register(newer)

	removed := r.Unregister(older)
	assert.False(t, removed, "expected stale unregister to be ignored")

	got, ok := r.Lookup(1)
	assert.True(t, ok, "expected user to stay online")
	assert.Equal(t, newer, got, "expected newer client to remain registered")
	assert.Equal(t, []int{1}, r.OnlineUserIds())
}

func TestConnectionRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewConnectionRegistry()
	c := newRegistryClient(1)
	other := newRegistryClient(2)
	r.Register(c)
	r.Register(other)

	assert.True(t, r.Unregister(c), "expected first unregister to remove entry")
	once := r.OnlineUserIds()

	assert.False(t, r.Unregister(c), "expected second unregister to be a no-op")
	assert.Equal(t, once, r.OnlineUserIds(), "expected same state after repeated unregister")
	assert.Equal(t, []int{2}, r.OnlineUserIds())

	assert.False(t, NewConnectionRegistry().Unregister(c), "expected unregister on empty registry to be a no-op")
}

func TestConnectionRegistry_OnlineUserIdsSortedAndEmpty(t *testing.T) {
	r := NewConnectionRegistry()
	ids := r.OnlineUserIds()
	assert.NotNil(t, ids, "expected empty snapshot to be non-nil")
	assert.Empty(t, ids)

	for _, id := range []int{5, 3, 9, 1} {
		r.Register(newRegistryClient(id))
	}
	assert.Equal(t, []int{1, 3, 5, 9}, r.OnlineUserIds())
}

// The online set must always equal the users whose latest registered client
// has not been unregistered, for any interleaving of events.
func TestConnectionRegistry_RandomSequences(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		r := NewConnectionRegistry()
		latest := make(map[int]*Client)
		var issued []*Client

		for step := 0; step < 200; step++ {
			if len(issued) == 0 || rnd.Intn(2) == 0 {
				c := newRegistryClient(rnd.Intn(5) + 1)
				r.Register(c)
				latest[c.user.Id] = c
				issued = append(issued, c)
			} else {
				c := issued[rnd.Intn(len(issued))]
				removed := r.Unregister(c)
				if latest[c.user.Id] == c {
					assert.True(t, removed, "expected current client to be removed")
					delete(latest, c.user.Id)
				} else {
					assert.False(t, removed, "expected stale client not to be removed")
				}
			}

			want := make([]int, 0, len(latest))
			for id := range latest {
				want = append(want, id)
			}
			slices.Sort(want)
			assert.Equal(t, want, r.OnlineUserIds(), "run %d step %d", run, step)
		}
	}
}
