package local

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/drakos74/goldmind/internal/api"
)

// User is the local observer, it logs every event and keeps the last few
// around for inspection. Used as the default publisher and in tests.
type User struct {
	mu     sync.RWMutex
	depth  int
	events []api.Event
}

// NewUser creates a local observer remembering up to depth events.
func NewUser(depth int) *User {
	return &User{
		depth:  depth,
		events: make([]api.Event, 0, depth),
	}
}

// Publish implements api.Publisher.
func (u *User) Publish(event *api.Event) {
	if event == nil {
		return
	}
	log.Debug().
		Str("type", string(event.Type)).
		Str("account", event.Account).
		Str("message", event.Message).
		Msg("event")

	u.mu.Lock()
	defer u.mu.Unlock()
	u.events = append(u.events, *event)
	if len(u.events) > u.depth {
		u.events = u.events[len(u.events)-u.depth:]
	}
}

// Events returns a copy of the remembered events, oldest first.
func (u *User) Events() []api.Event {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]api.Event, len(u.events))
	copy(out, u.events)
	return out
}

// Last returns the most recent event of the given type, if any.
func (u *User) Last(t api.EventType) (api.Event, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for i := len(u.events) - 1; i >= 0; i-- {
		if u.events[i].Type == t {
			return u.events[i], true
		}
	}
	return api.Event{}, false
}
