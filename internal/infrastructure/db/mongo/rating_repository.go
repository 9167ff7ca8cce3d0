package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

type RatingRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

var _ ports.RatingRepository = (*RatingRepository)(nil)

func NewRatingRepository(db *mongo.Database) *RatingRepository {
	return &RatingRepository{db: db, col: db.Collection(collectionRatings)}
}

type mongoRating struct {
	ID        int64     `bson:"_id"`
	UserID    int64     `bson:"user_id"`
	StoreID   int64     `bson:"store_id"`
	Rating    int       `bson:"rating"`
	Comment   *string   `bson:"comment"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (m *mongoRating) toDomain() *domain.Rating {
	return &domain.Rating{
		ID:        m.ID,
		UserID:    m.UserID,
		StoreID:   m.StoreID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// Upsert looks the (user, store) pair up first; run it inside RunInTx so the
// read and the write see one snapshot.
func (r *RatingRepository) Upsert(ctx context.Context, rt *domain.Rating) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	var existing mongoRating
	err := r.col.FindOne(ctx, bson.M{"user_id": rt.UserID, "store_id": rt.StoreID}).Decode(&existing)
	switch {
	case err == nil:
		_, err := r.col.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": bson.M{
			"rating":     rt.Rating,
			"comment":    rt.Comment,
			"updated_at": now,
		}})
		if err != nil {
			return false, persistence("update rating", err)
		}
		rt.ID, rt.CreatedAt, rt.UpdatedAt = existing.ID, existing.CreatedAt, now
		return false, nil

	case !errors.Is(err, mongo.ErrNoDocuments):
		return false, persistence("find rating", err)
	}

	// No foreign keys here, so a rater deleted while their token is still
	// valid is caught before the insert.
	n, err := r.db.Collection(collectionUsers).CountDocuments(ctx, bson.M{"_id": rt.UserID}, options.Count().SetLimit(1))
	if err != nil {
		return false, persistence("check rater", err)
	}
	if n == 0 {
		return false, domain.ErrInvalidToken
	}

	id, err := nextID(ctx, r.db, collectionRatings)
	if err != nil {
		return false, err
	}
	doc := mongoRating{
		ID:        id,
		UserID:    rt.UserID,
		StoreID:   rt.StoreID,
		Rating:    rt.Rating,
		Comment:   rt.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, domain.ErrDuplicateRating
		}
		return false, persistence("insert rating", err)
	}
	rt.ID, rt.CreatedAt, rt.UpdatedAt = id, now, now
	return true, nil
}

func (r *RatingRepository) findOne(ctx context.Context, filter bson.M) (*domain.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mr mongoRating
	if err := r.col.FindOne(ctx, filter).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRatingNotFound
		}
		return nil, persistence("find rating", err)
	}
	return mr.toDomain(), nil
}

func (r *RatingRepository) FindByID(ctx context.Context, id int64) (*domain.Rating, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *RatingRepository) FindByUserAndStore(ctx context.Context, userID, storeID int64) (*domain.Rating, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "store_id": storeID})
}

func (r *RatingRepository) ListByStore(ctx context.Context, storeID int64) ([]*domain.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "store_id", Value: storeID}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collectionUsers},
			{Key: "localField", Value: "user_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "user"},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, persistence("list store ratings", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		Doc  mongoRating `bson:",inline"`
		User []struct {
			Name string `bson:"name"`
		} `bson:"user"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, persistence("decode ratings", err)
	}

	ratings := make([]*domain.Rating, 0, len(docs))
	for i := range docs {
		rt := docs[i].Doc.toDomain()
		if len(docs[i].User) > 0 {
			rt.UserName = docs[i].User[0].Name
		}
		ratings = append(ratings, rt)
	}
	return ratings, nil
}

func (r *RatingRepository) totals(ctx context.Context, match bson.D) (domain.Totals, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}, totalsGroup}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.Totals{}, persistence("sum ratings", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Count int64 `bson:"count"`
		Sum   int64 `bson:"sum"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return domain.Totals{}, persistence("decode rating totals", err)
	}
	if len(rows) == 0 {
		return domain.Totals{}, nil
	}
	return domain.Totals{Count: rows[0].Count, Sum: rows[0].Sum}, nil
}

func (r *RatingRepository) TotalsByStore(ctx context.Context, storeID int64) (domain.Totals, error) {
	return r.totals(ctx, bson.D{{Key: "store_id", Value: storeID}})
}

func (r *RatingRepository) Totals(ctx context.Context) (domain.Totals, error) {
	return r.totals(ctx, bson.D{})
}

func (r *RatingRepository) StoreIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	values, err := r.col.Distinct(ctx, "store_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, persistence("list rated stores", err)
	}

	ids := make([]int64, 0, len(values))
	for _, v := range values {
		switch id := v.(type) {
		case int64:
			ids = append(ids, id)
		case int32:
			ids = append(ids, int64(id))
		default:
			return nil, persistence("list rated stores", fmt.Errorf("unexpected store_id type %T", v))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *RatingRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return persistence("delete rating", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRatingNotFound
	}
	return nil
}

func (r *RatingRepository) deleteMany(ctx context.Context, op string, filter bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteMany(ctx, filter); err != nil {
		return persistence(op, err)
	}
	return nil
}

func (r *RatingRepository) DeleteByStore(ctx context.Context, storeID int64) error {
	return r.deleteMany(ctx, "delete store ratings", bson.M{"store_id": storeID})
}

func (r *RatingRepository) DeleteByUser(ctx context.Context, userID int64) error {
	return r.deleteMany(ctx, "delete user ratings", bson.M{"user_id": userID})
}
