package tileclient

import "sync"

// Key identifies one save-state entry: a tile as seen by one viewer.
type Key struct {
	TileID   string
	ViewerID uint
}

// SaveStateCache holds the last known save state per Key. It is written by
// list seeding and by SaveToggle, and read by anything rendering a tile.
type SaveStateCache struct {
	mu      sync.RWMutex
	entries map[Key]bool
	subs    map[Key][]chan bool
	pending map[Key]bool
}

func NewSaveStateCache() *SaveStateCache {
	return &SaveStateCache{
		entries: make(map[Key]bool),
		subs:    make(map[Key][]chan bool),
		pending: make(map[Key]bool),
	}
}

// Get returns the cached value and whether there is one.
func (c *SaveStateCache) Get(k Key) (isSaved, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	isSaved, ok = c.entries[k]
	return isSaved, ok
}

// Set overwrites the entry and notifies subscribers of k.
func (c *SaveStateCache) Set(k Key, isSaved bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(k, isSaved)
}

// Seed overwrites the entry of every tile for viewerID with the tile's
// IsSaved flag. An anonymous viewer (0) seeds nothing.
func (c *SaveStateCache) Seed(viewerID uint, tiles []Tile) {
	if viewerID == 0 || len(tiles) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tiles {
		c.set(Key{TileID: t.ID, ViewerID: viewerID}, t.IsSaved)
	}
}

// Invalidate drops the entry so the next reader has to fetch it.
func (c *SaveStateCache) Invalidate(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k)
}

// Subscribe returns a channel that receives the latest value of k after
// every write. Only the newest value is kept for a slow reader. The
// returned func unsubscribes and closes the channel.
func (c *SaveStateCache) Subscribe(k Key) (<-chan bool, func()) {
	ch := make(chan bool, 1)
	c.mu.Lock()
	c.subs[k] = append(c.subs[k], ch)
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			subs := c.subs[k]
			for i, s := range subs {
				if s == ch {
					c.subs[k] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(c.subs[k]) == 0 {
				delete(c.subs, k)
			}
			close(ch)
		})
	}
}

// Pending reports whether a save toggle for k is in flight.
func (c *SaveStateCache) Pending(k Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending[k]
}

// beginToggle marks k pending and returns its current value. It fails when
// another toggle for k, from any SaveToggle sharing this cache, is in flight.
func (c *SaveStateCache) beginToggle(k Key) (prev bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[k] {
		return c.entries[k], false
	}
	c.pending[k] = true
	return c.entries[k], true
}

func (c *SaveStateCache) endToggle(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, k)
}

// set requires c.mu held for writing.
func (c *SaveStateCache) set(k Key, isSaved bool) {
	c.entries[k] = isSaved
	for _, ch := range c.subs[k] {
		select {
		case <-ch:
		default:
		}
		ch <- isSaved
	}
}
