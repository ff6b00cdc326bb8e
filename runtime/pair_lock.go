package runtime

import (
	"sync"

	"marketplace-chat/domain/chat"
)

type pairKey struct {
	sender, recipient chat.Identity
}

type pairEntry struct {
	mu   sync.Mutex
	refs int
}

// pairLock serializes work per (sender, recipient) pair. Distinct pairs never
// wait on each other; an entry lives only while someone holds or waits for it.
type pairLock struct {
	mu    sync.Mutex
	pairs map[pairKey]*pairEntry
}

func newPairLock() *pairLock {
	return &pairLock{pairs: make(map[pairKey]*pairEntry)}
}

// Lock acquires the lock of the pair and returns its unlock function.
func (p *pairLock) Lock(sender, recipient chat.Identity) func() {
	key := pairKey{sender: sender, recipient: recipient}

	p.mu.Lock()
	entry, ok := p.pairs[key]
	if !ok {
		entry = &pairEntry{}
		p.pairs[key] = entry
	}
	entry.refs++
	p.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		p.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(p.pairs, key)
		}
		p.mu.Unlock()
	}
}

func (p *pairLock) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pairs)
}
