package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPresenceCaseInsensitiveCollapse walks the register/register/remove
// scenario for two casings of the same name. The earliest registered casing
// is shown while its connection lives.
func TestPresenceCaseInsensitiveCollapse(t *testing.T) {
	p := NewPresence()

	assert.Equal(t, OnlineView{Count: 1, Users: []string{"bob"}}, p.Register("c1", "bob"))
	assert.Equal(t, OnlineView{Count: 1, Users: []string{"bob"}}, p.Register("c2", "Bob"))
	assert.Equal(t, OnlineView{Count: 1, Users: []string{"Bob"}}, p.Remove("c1"))
	assert.Equal(t, OnlineView{Count: 0, Users: []string{}}, p.Remove("c2"))
}

// TestPresenceSortsCaseInsensitively checks ordering across mixed casing.
func TestPresenceSortsCaseInsensitively(t *testing.T) {
	p := NewPresence()
	p.Register("1", "carla")
	p.Register("2", "Bruno")
	p.Register("3", "ana")
	view := p.Register("4", "Álvaro")

	assert.Equal(t, []string{"ana", "Bruno", "carla", "Álvaro"}, view.Users)
	assert.Equal(t, 4, view.Count)
}

// TestPresenceRegistrationIsCommutative registers distinct names in both
// orders and expects the same view.
func TestPresenceRegistrationIsCommutative(t *testing.T) {
	a := NewPresence()
	a.Register("A", "Zed")
	viewAB := a.Register("B", "amy")

	b := NewPresence()
	b.Register("B", "amy")
	viewBA := b.Register("A", "Zed")

	assert.Equal(t, viewAB, viewBA)
}

// TestPresenceDuplicateRegistration re-registers the same connection and
// expects no visible change.
func TestPresenceDuplicateRegistration(t *testing.T) {
	p := NewPresence()
	p.Register("c1", "dora")
	first := p.Register("c2", "Dora")
	second := p.Register("c1", "dora")

	assert.Equal(t, first, second)
	assert.Equal(t, 2, p.Connections())
}

// TestPresenceRenameMovesToNewest re-registers a connection under another
// casing, which makes it the newest registration for that name.
func TestPresenceRenameMovesToNewest(t *testing.T) {
	p := NewPresence()
	p.Register("c1", "eve")
	p.Register("c2", "EVE")
	view := p.Register("c1", "Eve")

	assert.Equal(t, []string{"EVE"}, view.Users)
}

// TestPresenceDefaultsAndTrimming covers blank and padded names.
func TestPresenceDefaultsAndTrimming(t *testing.T) {
	p := NewPresence()
	p.Register("c1", "   ")
	view := p.Register("c2", "  Bob ")

	assert.Equal(t, []string{DefaultName, "Bob"}, view.Users)
}

// TestPresenceRemoveUnknown removes a connection that was never registered.
func TestPresenceRemoveUnknown(t *testing.T) {
	p := NewPresence()
	p.Register("c1", "ana")

	assert.Equal(t, OnlineView{Count: 1, Users: []string{"ana"}}, p.Remove("ghost"))
}

// TestPresenceConcurrentAccess registers and removes from many goroutines
// and expects an empty registry afterwards.
func TestPresenceConcurrentAccess(t *testing.T) {
	p := NewPresence()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			p.Register(id, fmt.Sprintf("user-%d", i%7))
			_ = p.CurrentView()
			p.Remove(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, p.CurrentView().Count)
	assert.Equal(t, 0, p.Connections())
}
