package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
	"github.com/storerating/rating-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory database shared by the stub repositories
// ---------------------------------------------------------------------------

type memDB struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	stores  map[int64]*domain.Store
	ratings map[int64]*domain.Rating
	nextID  int64

	aggregateErr error   // if set, UpdateAggregate returns this error
	locked       []int64 // store ids passed to FindByIDForUpdate
	commits      int
	rollbacks    int
}

func newMemDB() *memDB {
	return &memDB{
		users:   make(map[int64]*domain.User),
		stores:  make(map[int64]*domain.Store),
		ratings: make(map[int64]*domain.Rating),
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.StoreID != nil {
		id := *u.StoreID
		c.StoreID = &id
	}
	return &c
}

func cloneStore(s *domain.Store) *domain.Store {
	c := *s
	if s.OwnerID != nil {
		id := *s.OwnerID
		c.OwnerID = &id
	}
	return &c
}

func cloneRating(r *domain.Rating) *domain.Rating {
	c := *r
	if r.Comment != nil {
		s := *r.Comment
		c.Comment = &s
	}
	return &c
}

type snapshot struct {
	users   map[int64]*domain.User
	stores  map[int64]*domain.Store
	ratings map[int64]*domain.Rating
	nextID  int64
}

func (db *memDB) snapshot() snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := snapshot{
		users:   make(map[int64]*domain.User, len(db.users)),
		stores:  make(map[int64]*domain.Store, len(db.stores)),
		ratings: make(map[int64]*domain.Rating, len(db.ratings)),
		nextID:  db.nextID,
	}
	for k, v := range db.users {
		s.users[k] = cloneUser(v)
	}
	for k, v := range db.stores {
		s.stores[k] = cloneStore(v)
	}
	for k, v := range db.ratings {
		s.ratings[k] = cloneRating(v)
	}
	return s
}

func (db *memDB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users, db.stores, db.ratings, db.nextID = s.users, s.stores, s.ratings, s.nextID
}

// seedUser inserts a user directly and returns its id.
func (db *memDB) seedUser(name string, role domain.Role) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := db.id()
	db.users[id] = &domain.User{
		ID:    id,
		Name:  name,
		Email: strings.ToLower(name) + "@example.com",
		Role:  role,
	}
	return id
}

// seedStore inserts a store owned by ownerID and links the owner back to it.
func (db *memDB) seedStore(name string, ownerID int64) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := db.id()
	owner := ownerID
	db.stores[id] = &domain.Store{
		ID:      id,
		Name:    name,
		Email:   strings.ToLower(name) + "@store.example.com",
		Address: name + " street",
		OwnerID: &owner,
	}
	if u, ok := db.users[ownerID]; ok && u.Role != domain.RoleAdmin {
		u.Role = domain.RoleStoreOwner
		sid := id
		u.StoreID = &sid
	}
	return id
}

func (db *memDB) store(id int64) *domain.Store {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.stores[id]
	if !ok {
		return nil
	}
	return cloneStore(s)
}

func (db *memDB) user(id int64) *domain.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	return cloneUser(db.users[id])
}

func (db *memDB) ratingCount(storeID int64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, r := range db.ratings {
		if r.StoreID == storeID {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// TxManager: snapshot on begin, restore on error
// ---------------------------------------------------------------------------

type memTx struct{ db *memDB }

type memTxKey struct{}

func (t memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	snap := t.db.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.db.restore(snap)
		t.db.mu.Lock()
		t.db.rollbacks++
		t.db.mu.Unlock()
		return err
	}
	t.db.mu.Lock()
	t.db.commits++
	t.db.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// UserRepository
// ---------------------------------------------------------------------------

type memUsers struct{ db *memDB }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	u.ID = r.db.id()
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.db.users[u.ID] = cloneUser(u)
	return nil
}

func (r memUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.User
	for _, u := range r.db.users {
		if !containsFold(u.Name, f.Name) || !containsFold(u.Email, f.Email) || !containsFold(u.Address, f.Address) {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	c := cloneUser(u)
	c.PasswordHash = existing.PasswordHash
	c.UpdatedAt = time.Now().UTC()
	r.db.users[u.ID] = c
	return nil
}

func (r memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r memUsers) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.db.users, id)
	return nil
}

func (r memUsers) ExistsWithRole(_ context.Context, role domain.Role) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (r memUsers) ResetStoreOwners(_ context.Context, storeID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, u := range r.db.users {
		if u.StoreID != nil && *u.StoreID == storeID {
			u.Role = domain.RoleUser
			u.StoreID = nil
			n++
		}
	}
	return n, nil
}

func (r memUsers) CountByRole(_ context.Context) (map[domain.Role]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[domain.Role]int64)
	for _, u := range r.db.users {
		out[u.Role]++
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// StoreRepository
// ---------------------------------------------------------------------------

type memStores struct{ db *memDB }

func (r memStores) Create(_ context.Context, s *domain.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.stores {
		if existing.Email == s.Email {
			return domain.ErrStoreEmailTaken
		}
	}
	s.ID = r.db.id()
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	s.AverageRating, s.TotalRatings = 0, 0
	r.db.stores[s.ID] = cloneStore(s)
	return nil
}

func (r memStores) FindByID(_ context.Context, id int64) (*domain.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.stores[id]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	return cloneStore(s), nil
}

func (r memStores) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Store, error) {
	r.db.mu.Lock()
	r.db.locked = append(r.db.locked, id)
	r.db.mu.Unlock()
	return r.FindByID(ctx, id)
}

func (r memStores) FindByEmail(_ context.Context, email string) (*domain.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.stores {
		if s.Email == email {
			return cloneStore(s), nil
		}
	}
	return nil, domain.ErrStoreNotFound
}

func (r memStores) List(_ context.Context, f ports.ListStoresFilter) ([]*domain.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Store
	for _, s := range r.db.stores {
		if !containsFold(s.Name, f.Name) || !containsFold(s.Address, f.Address) {
			continue
		}
		if f.MinRating != nil && s.AverageRating < *f.MinRating {
			continue
		}
		out = append(out, cloneStore(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memStores) ListByOwner(_ context.Context, ownerID int64) ([]*domain.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Store
	for _, s := range r.db.stores {
		if s.OwnedBy(ownerID) {
			out = append(out, cloneStore(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memStores) Update(_ context.Context, s *domain.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.stores[s.ID]
	if !ok {
		return domain.ErrStoreNotFound
	}
	c := cloneStore(s)
	c.AverageRating, c.TotalRatings = existing.AverageRating, existing.TotalRatings
	r.db.stores[s.ID] = c
	return nil
}

func (r memStores) UpdateAggregate(_ context.Context, id int64, agg domain.Aggregate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.aggregateErr != nil {
		return r.db.aggregateErr
	}
	s, ok := r.db.stores[id]
	if !ok {
		return domain.ErrStoreNotFound
	}
	s.ApplyAggregate(agg)
	return nil
}

func (r memStores) ClearOwner(_ context.Context, ownerID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.stores {
		if s.OwnedBy(ownerID) {
			s.OwnerID = nil
		}
	}
	return nil
}

func (r memStores) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.stores[id]; !ok {
		return domain.ErrStoreNotFound
	}
	delete(r.db.stores, id)
	return nil
}

func (r memStores) Count(_ context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.stores)), nil
}

// ---------------------------------------------------------------------------
// RatingRepository
// ---------------------------------------------------------------------------

type memRatings struct{ db *memDB }

func (r memRatings) Upsert(_ context.Context, rt *domain.Rating) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now().UTC()
	for _, existing := range r.db.ratings {
		if existing.UserID == rt.UserID && existing.StoreID == rt.StoreID {
			existing.Rating = rt.Rating
			existing.Comment = rt.Comment
			existing.UpdatedAt = now
			*rt = *cloneRating(existing)
			return false, nil
		}
	}
	rt.ID = r.db.id()
	rt.CreatedAt, rt.UpdatedAt = now, now
	r.db.ratings[rt.ID] = cloneRating(rt)
	return true, nil
}

func (r memRatings) FindByID(_ context.Context, id int64) (*domain.Rating, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rt, ok := r.db.ratings[id]
	if !ok {
		return nil, domain.ErrRatingNotFound
	}
	return cloneRating(rt), nil
}

func (r memRatings) FindByUserAndStore(_ context.Context, userID, storeID int64) (*domain.Rating, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rt := range r.db.ratings {
		if rt.UserID == userID && rt.StoreID == storeID {
			return cloneRating(rt), nil
		}
	}
	return nil, domain.ErrRatingNotFound
}

func (r memRatings) ListByStore(_ context.Context, storeID int64) ([]*domain.Rating, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []*domain.Rating{}
	for _, rt := range r.db.ratings {
		if rt.StoreID != storeID {
			continue
		}
		c := cloneRating(rt)
		if u, ok := r.db.users[rt.UserID]; ok {
			c.UserName = u.Name
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memRatings) TotalsByStore(_ context.Context, storeID int64) (domain.Totals, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var t domain.Totals
	for _, rt := range r.db.ratings {
		if rt.StoreID == storeID {
			t.Count++
			t.Sum += int64(rt.Rating)
		}
	}
	return t, nil
}

func (r memRatings) Totals(_ context.Context) (domain.Totals, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var t domain.Totals
	for _, rt := range r.db.ratings {
		t.Count++
		t.Sum += int64(rt.Rating)
	}
	return t, nil
}

func (r memRatings) StoreIDsByUser(_ context.Context, userID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []int64
	for _, rt := range r.db.ratings {
		if rt.UserID == userID {
			out = append(out, rt.StoreID)
		}
	}
	return out, nil
}

func (r memRatings) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.ratings[id]; !ok {
		return domain.ErrRatingNotFound
	}
	delete(r.db.ratings, id)
	return nil
}

func (r memRatings) DeleteByStore(_ context.Context, storeID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, rt := range r.db.ratings {
		if rt.StoreID == storeID {
			delete(r.db.ratings, id)
		}
	}
	return nil
}

func (r memRatings) DeleteByUser(_ context.Context, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, rt := range r.db.ratings {
		if rt.UserID == userID {
			delete(r.db.ratings, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// StatsCache
// ---------------------------------------------------------------------------

type memCache struct {
	mu            sync.Mutex
	stats         *domain.DashboardStats
	gen           int64
	sets          int
	invalidations int

	onMiss func() // if set, runs after a miss has been reported
}

func (c *memCache) Get(context.Context) (*domain.DashboardStats, int64, bool, error) {
	c.mu.Lock()
	gen := c.gen
	if c.stats != nil {
		s := *c.stats
		c.mu.Unlock()
		return &s, gen, true, nil
	}
	hook := c.onMiss
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil, gen, false, nil
}

func (c *memCache) Set(_ context.Context, s *domain.DashboardStats, gen int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	cp := *s
	c.stats = &cp
	c.sets++
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = nil
	c.gen++
	c.invalidations++
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

type fixture struct {
	db      *memDB
	cache   *memCache
	users   *UserService
	stores  *StoreService
	ratings *RatingService
}

func newFixture() *fixture {
	db := newMemDB()
	cache := &memCache{}
	tx := memTx{db: db}
	return &fixture{
		db:      db,
		cache:   cache,
		users:   NewUserService(tx, memUsers{db}, memStores{db}, memRatings{db}, cache, discardLogger),
		stores:  NewStoreService(tx, memUsers{db}, memStores{db}, memRatings{db}, cache, discardLogger),
		ratings: NewRatingService(tx, memStores{db}, memRatings{db}, cache, discardLogger),
	}
}

func as(id int64, role domain.Role) policy.Principal {
	return policy.Principal{UserID: id, Role: role}
}

func ptr[T any](v T) *T { return &v }
