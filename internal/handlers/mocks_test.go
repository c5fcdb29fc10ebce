package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/tilehub/backend/internal/middleware"
	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/anonto42/tilehub/backend/internal/repositories"
	"github.com/anonto42/tilehub/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type savedKey struct {
	tileID string
	userID uint
}

type mockSavedTileStore struct {
	mu         sync.Mutex
	records    map[savedKey]bool
	order      []savedKey
	batchCalls int
	writes     int
	err        error
}

func newMockSavedTileStore() *mockSavedTileStore {
	return &mockSavedTileStore{records: make(map[savedKey]bool)}
}

func (m *mockSavedTileStore) Get(_ context.Context, tileID string, userID uint) (*models.SavedTile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.records[savedKey{tileID, userID}]
	if !ok {
		return nil, nil
	}
	return &models.SavedTile{TileID: tileID, UserID: userID, IsSaved: v}, nil
}

func (m *mockSavedTileStore) GetState(ctx context.Context, tileID string, userID uint) (models.SaveState, error) {
	rec, err := m.Get(ctx, tileID, userID)
	if err != nil {
		return models.NeverRecorded, err
	}
	return models.StateOf(rec), nil
}

func (m *mockSavedTileStore) GetBatch(_ context.Context, tileIDs []string, userID uint) ([]models.SavedTile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.err != nil {
		return nil, m.err
	}
	var out []models.SavedTile
	for _, id := range tileIDs {
		if v, ok := m.records[savedKey{id, userID}]; ok {
			out = append(out, models.SavedTile{TileID: id, UserID: userID, IsSaved: v})
		}
	}
	return out, nil
}

func (m *mockSavedTileStore) Upsert(_ context.Context, tileID string, userID uint, isSaved bool) (*models.SavedTile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.writes++
	k := savedKey{tileID, userID}
	if _, ok := m.records[k]; !ok {
		m.order = append(m.order, k)
	}
	m.records[k] = isSaved
	return &models.SavedTile{TileID: tileID, UserID: userID, IsSaved: isSaved}, nil
}

func (m *mockSavedTileStore) ListSavedTileIDs(_ context.Context, userID uint, skip, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var ids []string
	for i := len(m.order) - 1; i >= 0; i-- {
		k := m.order[i]
		if k.userID == userID && m.records[k] {
			ids = append(ids, k.tileID)
		}
	}
	if skip >= len(ids) {
		return []string{}, nil
	}
	ids = ids[skip:]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type mockTileStore struct {
	mu    sync.Mutex
	tiles []models.Tile
}

func (m *mockTileStore) add(title string, credits ...uint) models.Tile {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := models.Tile{ID: primitive.NewObjectID(), Title: title, CreatedAt: time.Now()}
	for _, id := range credits {
		t.Credits = append(t.Credits, models.TileCredit{SupplierID: id})
	}
	m.tiles = append(m.tiles, t)
	return t
}

func (m *mockTileStore) CreateTile(_ context.Context, tile *models.Tile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tile.ID = primitive.NewObjectID()
	m.tiles = append(m.tiles, *tile)
	return nil
}

func (m *mockTileStore) GetTileByID(_ context.Context, id string) (*models.Tile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tiles {
		if t.ID.Hex() == id {
			t := t
			return &t, nil
		}
	}
	return nil, repositories.ErrTileNotFound
}

func (m *mockTileStore) GetTilesByIDs(_ context.Context, ids []string) ([]models.Tile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Tile
	for _, id := range ids {
		for _, t := range m.tiles {
			if t.ID.Hex() == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (m *mockTileStore) GetTilesBySupplier(_ context.Context, supplierID uint, _, _ int64) ([]models.Tile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Tile
	for _, t := range m.tiles {
		for _, c := range t.Credits {
			if c.SupplierID == supplierID {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (m *mockTileStore) GetFeed(_ context.Context, skip, limit int64) ([]models.Tile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Tile(nil), m.tiles...)
	if skip >= int64(len(out)) {
		return []models.Tile{}, nil
	}
	out = out[skip:]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockTileStore) CountTiles(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tiles)), nil
}

type mockSupplierStore struct {
	suppliers map[uint]*models.Supplier
}

func (m *mockSupplierStore) CreateSupplier(_ context.Context, s *models.Supplier) error {
	s.ID = uint(len(m.suppliers) + 1)
	m.suppliers[s.ID] = s
	return nil
}

func (m *mockSupplierStore) GetSupplierByID(_ context.Context, id uint) (*models.Supplier, error) {
	s, ok := m.suppliers[id]
	if !ok {
		return nil, repositories.ErrSupplierNotFound
	}
	return s, nil
}

func (m *mockSupplierStore) SearchSuppliers(_ context.Context, f models.SupplierFilter) ([]models.Supplier, error) {
	var out []models.Supplier
	for _, s := range m.suppliers {
		if f.Service == "" || strings.EqualFold(f.Service, s.Service) {
			out = append(out, *s)
		}
	}
	return out, nil
}

type mockUserStore struct {
	mu    sync.Mutex
	users map[uint]*models.User
}

func (m *mockUserStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uint(len(m.users) + 1)
	m.users[u.ID] = u
	return nil
}

func (m *mockUserStore) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (m *mockUserStore) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.FirebaseUID != nil && *u.FirebaseUID == uid {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (m *mockUserStore) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// testServer wires the handlers the way the router does, over mock stores.
type testServer struct {
	e         *echo.Echo
	tokens    *middleware.JWTAuthenticator
	saved     *mockSavedTileStore
	tiles     *mockTileStore
	suppliers *mockSupplierStore
	users     *mockUserStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		e:         echo.New(),
		tokens:    middleware.NewJWTAuthenticator("test-secret", time.Hour),
		saved:     newMockSavedTileStore(),
		tiles:     &mockTileStore{},
		suppliers: &mockSupplierStore{suppliers: map[uint]*models.Supplier{}},
		users:     &mockUserStore{users: map[uint]*models.User{}},
	}
	s.e.Validator = validators.NewValidator()

	NewAuthHandler(s.users, s.tokens, nil).RegisterAuthRoutes(s.e.Group("/api/v1/auth"))
	public := s.e.Group("/api/v1", middleware.OptionalAuth(s.tokens))
	protected := s.e.Group("/api/v1", middleware.RequireAuth(s.tokens))
	NewUserHandler(s.users).RegisterProfileRoutes(protected)
	NewSupplierHandler(s.suppliers).RegisterSupplierRoutes(public, protected)
	NewTileHandler(s.tiles, s.saved, s.suppliers, s.users).RegisterTileRoutes(public, protected)
	NewSavedTileHandler(s.saved, s.tiles).RegisterSavedTileRoutes(protected)
	return s
}

func (s *testServer) user(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	u := &models.User{Name: name, Email: strings.ToLower(name) + "@example.com"}
	require.NoError(t, s.users.CreateUser(context.Background(), u))
	token, err := s.tokens.Issue(u)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}
