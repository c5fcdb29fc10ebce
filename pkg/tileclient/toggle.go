package tileclient

import "context"

// SaveToggle flips the viewer's save state for one tile. A tile is Idle or
// Pending; the Pending mark lives in the cache, so every SaveToggle for the
// same tile and viewer sees it and further toggles are refused.
type SaveToggle struct {
	client *Client
	tileID string
}

func (c *Client) NewSaveToggle(tileID string) *SaveToggle {
	return &SaveToggle{client: c, tileID: tileID}
}

func (t *SaveToggle) key() Key {
	return Key{TileID: t.tileID, ViewerID: t.client.viewerID}
}

// Pending reports whether a write for this tile is in flight.
func (t *SaveToggle) Pending() bool {
	return t.client.cache.Pending(t.key())
}

// IsSaved reads the cached value. A tile with no entry reads as not saved.
func (t *SaveToggle) IsSaved() bool {
	v, _ := t.client.cache.Get(t.key())
	return v
}

// Toggle writes the inverse of the cached value to the cache at once and
// sends it to the server as an explicit target. On success the server's
// value is cached, even if it differs from the optimistic one. On failure
// the previous value is restored and the error returned.
//
// Cancelling ctx does not abort the write once it has been issued.
func (t *SaveToggle) Toggle(ctx context.Context) (bool, error) {
	if t.client.viewerID == 0 {
		return false, ErrAnonymous
	}

	k := t.key()
	cache := t.client.cache
	prev, ok := cache.beginToggle(k)
	if !ok {
		return prev, ErrTogglePending
	}
	defer cache.endToggle(k)

	target := !prev
	cache.Set(k, target)

	state, err := t.client.SetSaveState(context.WithoutCancel(ctx), t.tileID, target)
	if err != nil {
		cache.Set(k, prev)
		return prev, err
	}
	cache.Set(k, state.IsSaved)
	return state.IsSaved, nil
}
