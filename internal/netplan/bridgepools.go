package netplan

import (
	"fmt"
	"sync"
)

// BridgePools owns one IPPool per bridge name, created lazily from a
// caller-supplied range the first time a bridge is seen.
type BridgePools struct {
	mu     sync.Mutex
	pools  map[string]*IPPool
	ranges map[string][2]string // bridge -> (start, end), set by EnsureBridge
}

// NewBridgePools returns an empty registry.
func NewBridgePools() *BridgePools {
	return &BridgePools{
		pools:  make(map[string]*IPPool),
		ranges: make(map[string][2]string),
	}
}

// EnsureBridge registers bridge's address range if it hasn't been seen yet.
// Calling it again with a different range on an existing bridge is an error
// — bridges don't get to change their pool mid-fleet.
func (b *BridgePools) EnsureBridge(bridge, start, end string) (*IPPool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.ranges[bridge]; ok {
		if r[0] != start || r[1] != end {
			return nil, fmt.Errorf("bridge %q already registered with range %s-%s, not %s-%s", bridge, r[0], r[1], start, end)
		}
		return b.pools[bridge], nil
	}

	pool, err := NewIPPool(start, end)
	if err != nil {
		return nil, fmt.Errorf("bridge %q: %w", bridge, err)
	}
	b.ranges[bridge] = [2]string{start, end}
	b.pools[bridge] = pool
	return pool, nil
}

// Pool returns the pool for an already-registered bridge, or nil.
func (b *BridgePools) Pool(bridge string) *IPPool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pools[bridge]
}
