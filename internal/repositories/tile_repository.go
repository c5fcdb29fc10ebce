package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/tilehub/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TileRepository defines the interface for tile data operations
type TileRepository interface {
	CreateTile(ctx context.Context, tile *models.Tile) error
	GetTileByID(ctx context.Context, id string) (*models.Tile, error)
	// GetTilesByIDs returns the tiles in the order of ids, skipping ids with no tile.
	GetTilesByIDs(ctx context.Context, ids []string) ([]models.Tile, error)
	GetTilesBySupplier(ctx context.Context, supplierID uint, skip, limit int64) ([]models.Tile, error)
	GetFeed(ctx context.Context, skip, limit int64) ([]models.Tile, error)
	CountTiles(ctx context.Context) (int64, error)
}

// MongoTileRepository implements TileRepository for MongoDB
type MongoTileRepository struct {
	collection *mongo.Collection
}

// NewMongoTileRepository creates a new MongoTileRepository
func NewMongoTileRepository(db *mongo.Database) *MongoTileRepository {
	return &MongoTileRepository{collection: db.Collection("tiles")}
}

// EnsureIndexes creates the indexes used by the feed and supplier listings
func (r *MongoTileRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "credits.supplier_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create tile indexes: %w", err)
	}
	return nil
}

// CreateTile inserts a new tile
func (r *MongoTileRepository) CreateTile(ctx context.Context, tile *models.Tile) error {
	now := time.Now().UTC()
	tile.ID = primitive.NewObjectID()
	tile.CreatedAt = now
	tile.UpdatedAt = now
	if tile.Credits == nil {
		tile.Credits = []models.TileCredit{}
	}
	if _, err := r.collection.InsertOne(ctx, tile); err != nil {
		return fmt.Errorf("insert tile: %w", err)
	}
	return nil
}

// GetTileByID retrieves a tile by its hex ObjectID
func (r *MongoTileRepository) GetTileByID(ctx context.Context, id string) (*models.Tile, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: tile %q", ErrInvalidID, id)
	}

	var tile models.Tile
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&tile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTileNotFound
		}
		return nil, fmt.Errorf("find tile %s: %w", id, err)
	}
	return &tile, nil
}

func (r *MongoTileRepository) GetTilesByIDs(ctx context.Context, ids []string) ([]models.Tile, error) {
	if len(ids) == 0 {
		return []models.Tile{}, nil
	}
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objIDs = append(objIDs, objID)
	}

	found, err := r.find(ctx, bson.M{"_id": bson.M{"$in": objIDs}}, options.Find())
	if err != nil {
		return nil, err
	}
	return orderByIDs(found, ids), nil
}

// GetTilesBySupplier lists tiles crediting supplierID, newest first
func (r *MongoTileRepository) GetTilesBySupplier(ctx context.Context, supplierID uint, skip, limit int64) ([]models.Tile, error) {
	return r.find(ctx, bson.M{"credits.supplier_id": supplierID}, newestFirst(skip, limit))
}

// GetFeed lists all tiles, newest first
func (r *MongoTileRepository) GetFeed(ctx context.Context, skip, limit int64) ([]models.Tile, error) {
	return r.find(ctx, bson.D{}, newestFirst(skip, limit))
}

func (r *MongoTileRepository) CountTiles(ctx context.Context) (int64, error) {
	n, err := r.collection.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count tiles: %w", err)
	}
	return n, nil
}

func (r *MongoTileRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Tile, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find tiles: %w", err)
	}
	defer cursor.Close(ctx)

	tiles := []models.Tile{}
	if err = cursor.All(ctx, &tiles); err != nil {
		return nil, fmt.Errorf("decode tiles: %w", err)
	}
	return tiles, nil
}

func newestFirst(skip, limit int64) *options.FindOptions {
	// _id breaks ties between tiles created in the same millisecond
	return options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func orderByIDs(tiles []models.Tile, ids []string) []models.Tile {
	byID := make(map[string]models.Tile, len(tiles))
	for _, t := range tiles {
		byID[t.ID.Hex()] = t
	}
	ordered := make([]models.Tile, 0, len(tiles))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered
}
