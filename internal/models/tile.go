package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TileCredit credits a supplier for the service shown on a tile
type TileCredit struct {
	SupplierID uint   `json:"supplierId" bson:"supplier_id" validate:"required"`
	Service    string `json:"service,omitempty" bson:"service,omitempty" validate:"omitempty,max=60"`
}

// Tile is an inspiration image stored in MongoDB
type Tile struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	ImageURL    string             `json:"imageUrl" bson:"image_url"`
	AuthorID    uint               `json:"authorId" bson:"author_id"`
	Credits     []TileCredit       `json:"credits" bson:"credits"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`

	// IsSaved is filled per viewer at response time and never stored.
	IsSaved bool `json:"isSaved" bson:"-"`
}

// CreateTileRequest defines the request body for publishing a tile
type CreateTileRequest struct {
	Title       string       `json:"title" validate:"required,min=1,max=140"`
	Description string       `json:"description,omitempty" validate:"omitempty,max=2000"`
	ImageURL    string       `json:"imageUrl" validate:"required,url"`
	Credits     []TileCredit `json:"credits,omitempty" validate:"omitempty,max=20,dive"`
}
