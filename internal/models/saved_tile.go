package models

import "time"

// SavedTile records whether a user has a tile saved. One row per
// (tile, user); rows are updated in place and never deleted, so a row with
// IsSaved false means the user explicitly unsaved the tile.
type SavedTile struct {
	TileID    string    `json:"tileId" gorm:"primaryKey;size:24"`
	UserID    uint      `json:"userId" gorm:"primaryKey;autoIncrement:false;index"`
	IsSaved   bool      `json:"isSaved" gorm:"not null"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-" gorm:"index"`
}

// SaveState is the three-way result of reading a save record.
type SaveState int

const (
	NeverRecorded SaveState = iota
	Saved
	ExplicitlyUnsaved
)

func (s SaveState) String() string {
	switch s {
	case Saved:
		return "saved"
	case ExplicitlyUnsaved:
		return "unsaved"
	default:
		return "never_recorded"
	}
}

// IsSaved collapses the state for display; only Saved is true.
func (s SaveState) IsSaved() bool {
	return s == Saved
}

// StateOf maps a possibly missing record to its SaveState.
func StateOf(rec *SavedTile) SaveState {
	switch {
	case rec == nil:
		return NeverRecorded
	case rec.IsSaved:
		return Saved
	default:
		return ExplicitlyUnsaved
	}
}

// SaveStateResponse is the wire shape of a single tile's save state
type SaveStateResponse struct {
	TileID  string `json:"tileId"`
	UserID  uint   `json:"userId"`
	IsSaved bool   `json:"isSaved"`
}

// UpdateSaveStateRequest carries the explicit target value; a missing
// isSaved means save.
type UpdateSaveStateRequest struct {
	IsSaved *bool `json:"isSaved"`
}
