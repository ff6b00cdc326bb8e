package runtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPairLock_Serializes_Same_Pair(t *testing.T) {
	req := require.New(t)
	locks := newPairLock()
	sender, recipient := uuid.New(), uuid.New()

	// Given the pair is held
	unlock := locks.Lock(sender, recipient)

	// When a second caller asks for the same pair
	acquired := make(chan struct{})
	go func() {
		locks.Lock(sender, recipient)()
		close(acquired)
	}()

	// Then it waits until the first one releases
	select {
	case <-acquired:
		req.Fail("Same pair acquired twice")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		req.Fail("Lock was not handed over")
	}
}

func TestPairLock_Distinct_Pairs_Do_Not_Wait(t *testing.T) {
	req := require.New(t)
	locks := newPairLock()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	// Given alice→bob is held
	unlock := locks.Lock(alice, bob)
	defer unlock()

	// When other pairs, including the reverse direction, are locked
	done := make(chan struct{})
	go func() {
		locks.Lock(carol, bob)()
		locks.Lock(bob, alice)()
		close(done)
	}()

	// Then none of them waits
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Unrelated pair blocked")
	}
}

func TestPairLock_Forgets_Released_Pairs(t *testing.T) {
	req := require.New(t)
	locks := newPairLock()

	for range 100 {
		locks.Lock(uuid.New(), uuid.New())()
	}

	req.Zero(locks.size())
}
