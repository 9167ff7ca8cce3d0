package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

type StoreRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

var _ ports.StoreRepository = (*StoreRepository)(nil)

func NewStoreRepository(db *mongo.Database) *StoreRepository {
	return &StoreRepository{db: db, col: db.Collection(collectionStores)}
}

type mongoStore struct {
	ID            int64     `bson:"_id"`
	Name          string    `bson:"name"`
	Email         string    `bson:"email"`
	Address       string    `bson:"address"`
	OwnerID       *int64    `bson:"owner_id"`
	AverageRating float64   `bson:"average_rating"`
	TotalRatings  int64     `bson:"total_ratings"`
	LockSeq       int64     `bson:"lock_seq,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func (m *mongoStore) toDomain() *domain.Store {
	return &domain.Store{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Address:       m.Address,
		OwnerID:       m.OwnerID,
		AverageRating: m.AverageRating,
		TotalRatings:  m.TotalRatings,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (r *StoreRepository) Create(ctx context.Context, s *domain.Store) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionStores)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	doc := mongoStore{
		ID:        id,
		Name:      s.Name,
		Email:     s.Email,
		Address:   s.Address,
		OwnerID:   s.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrStoreEmailTaken
		}
		return persistence("insert store", err)
	}

	s.ID, s.CreatedAt, s.UpdatedAt = id, now, now
	s.AverageRating, s.TotalRatings = 0, 0
	return nil
}

func (r *StoreRepository) findOne(ctx context.Context, filter bson.M) (*domain.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoStore
	if err := r.col.FindOne(ctx, filter).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, persistence("find store", err)
	}
	return ms.toDomain(), nil
}

func (r *StoreRepository) FindByID(ctx context.Context, id int64) (*domain.Store, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByIDForUpdate bumps lock_seq so that any concurrent transaction writing
// the same store hits a write conflict and is retried by the driver.
func (r *StoreRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoStore
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"lock_seq": int64(1)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ms)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, persistence("lock store", err)
	}
	return ms.toDomain(), nil
}

func (r *StoreRepository) FindByEmail(ctx context.Context, email string) (*domain.Store, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *StoreRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]*domain.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, persistence("list stores", err)
	}
	defer cur.Close(ctx)

	var docs []mongoStore
	if err := cur.All(ctx, &docs); err != nil {
		return nil, persistence("decode stores", err)
	}
	stores := make([]*domain.Store, 0, len(docs))
	for i := range docs {
		stores = append(stores, docs[i].toDomain())
	}
	return stores, nil
}

func (r *StoreRepository) List(ctx context.Context, f ports.ListStoresFilter) ([]*domain.Store, error) {
	filter := bson.M{}
	if f.Name != "" {
		filter["name"] = ilike(f.Name)
	}
	if f.Address != "" {
		filter["address"] = ilike(f.Address)
	}
	if f.MinRating != nil {
		filter["average_rating"] = bson.M{"$gte": *f.MinRating}
	}
	return r.find(ctx, filter, bson.D{{Key: "average_rating", Value: -1}, {Key: "_id", Value: 1}})
}

func (r *StoreRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Store, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID}, bson.D{{Key: "_id", Value: 1}})
}

func (r *StoreRepository) Update(ctx context.Context, s *domain.Store) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": bson.M{
		"name":       s.Name,
		"email":      s.Email,
		"address":    s.Address,
		"owner_id":   s.OwnerID,
		"updated_at": now,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrStoreEmailTaken
		}
		return persistence("update store", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrStoreNotFound
	}
	s.UpdatedAt = now
	return nil
}

func (r *StoreRepository) UpdateAggregate(ctx context.Context, id int64, agg domain.Aggregate) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"average_rating": agg.Average,
		"total_ratings":  agg.Total,
		"updated_at":     time.Now().UTC(),
	}})
	if err != nil {
		return persistence("update store aggregate", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *StoreRepository) ClearOwner(ctx context.Context, ownerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateMany(ctx, bson.M{"owner_id": ownerID}, bson.M{"$set": bson.M{"owner_id": nil}})
	if err != nil {
		return persistence("clear store owner", err)
	}
	return nil
}

func (r *StoreRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return persistence("delete store", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *StoreRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, persistence("count stores", err)
	}
	return n, nil
}
