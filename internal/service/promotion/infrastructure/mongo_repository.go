package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"promohub/internal/service/promotion/domain"
)

// MongoPromotionRepository 是 PromotionRepository 的 MongoDB 实现
type MongoPromotionRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoPromotionRepository(db *mongo.Database) *MongoPromotionRepository {
	return &MongoPromotionRepository{coll: db.Collection(PromotionCollection), now: time.Now}
}

func (r *MongoPromotionRepository) timestamp() time.Time {
	// BSON datetime 只保留毫秒
	return r.now().UTC().Truncate(time.Millisecond)
}

func (r *MongoPromotionRepository) Create(ctx context.Context, p *domain.Promotion) error {
	if !p.HasValidWindow() {
		return domain.InvalidDateRange(p.StartDate, p.EndDate)
	}
	doc := documentFromDomain(p)
	now := r.timestamp()
	doc.CreatedAt, doc.UpdatedAt = now, now

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return mongoError(err, "Failed to create promotion")
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	*p = *doc.toDomain()
	return nil
}

// idFilter 非法的 ObjectID 无法指向任何记录，按不存在处理。
func idFilter(id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.PromotionNotFound(id)
	}
	return bson.M{"_id": oid}, nil
}

func (r *MongoPromotionRepository) FindByID(ctx context.Context, id string, includeDeleted bool) (*domain.Promotion, error) {
	filter, err := idFilter(id)
	if err != nil {
		return nil, err
	}
	if !includeDeleted {
		filter["isDeleted"] = bson.M{"$ne": true}
	}

	var doc promotionDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.PromotionNotFound(id)
		}
		return nil, mongoError(err, "Failed to load promotion")
	}
	return doc.toDomain(), nil
}

func (r *MongoPromotionRepository) Find(ctx context.Context, c domain.Criteria, o domain.Order, w domain.Window) ([]*domain.Promotion, error) {
	opts := options.Find()
	if s := mongoSort(o); s != nil {
		opts.SetSort(s)
	}
	if w.Skip > 0 {
		opts.SetSkip(int64(w.Skip))
	}
	if w.Limit > 0 {
		opts.SetLimit(int64(w.Limit))
	}

	cur, err := r.coll.Find(ctx, mongoFilter(c), opts)
	if err != nil {
		return nil, mongoError(err, "Failed to query promotions")
	}
	defer cur.Close(ctx)

	var docs []promotionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoError(err, "Failed to decode promotions")
	}
	out := make([]*domain.Promotion, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *MongoPromotionRepository) Count(ctx context.Context, c domain.Criteria) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, mongoFilter(c))
	if err != nil {
		return 0, mongoError(err, "Failed to count promotions")
	}
	return n, nil
}

func (r *MongoPromotionRepository) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Promotion, error) {
	current, err := r.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	merged := patch.ApplyTo(*current)
	if !merged.HasValidWindow() {
		return nil, domain.InvalidDateRange(merged.StartDate, merged.EndDate)
	}

	set := bson.M{"updatedAt": r.timestamp()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.UserGroupName != nil {
		set["userGroupName"] = *patch.UserGroupName
	}
	if patch.Type != nil {
		set["type"] = string(*patch.Type)
	}
	if patch.StartDate != nil {
		set["startDate"] = patch.StartDate.UTC()
	}
	if patch.EndDate != nil {
		set["endDate"] = patch.EndDate.UTC()
	}
	if patch.IsActive != nil {
		set["isActive"] = *patch.IsActive
	}

	filter, _ := idFilter(id)
	filter["isDeleted"] = bson.M{"$ne": true}
	return r.findOneAndSet(ctx, id, filter, set)
}

func (r *MongoPromotionRepository) SoftDelete(ctx context.Context, id string) (*domain.Promotion, error) {
	filter, err := idFilter(id)
	if err != nil {
		return nil, err
	}
	filter["isDeleted"] = bson.M{"$ne": true}
	return r.findOneAndSet(ctx, id, filter, bson.M{"isDeleted": true, "isActive": false, "updatedAt": r.timestamp()})
}

func (r *MongoPromotionRepository) Restore(ctx context.Context, id string) (*domain.Promotion, error) {
	filter, err := idFilter(id)
	if err != nil {
		return nil, err
	}
	filter["isDeleted"] = true
	return r.findOneAndSet(ctx, id, filter, bson.M{"isDeleted": false, "isActive": true, "updatedAt": r.timestamp()})
}

func (r *MongoPromotionRepository) findOneAndSet(ctx context.Context, id string, filter, set bson.M) (*domain.Promotion, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc promotionDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.PromotionNotFound(id)
		}
		return nil, mongoError(err, "Failed to update promotion")
	}
	return doc.toDomain(), nil
}

func (r *MongoPromotionRepository) HardDelete(ctx context.Context, id string) error {
	filter, err := idFilter(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return mongoError(err, "Failed to delete promotion")
	}
	if res.DeletedCount == 0 {
		return domain.PromotionNotFound(id)
	}
	return nil
}

func mongoError(err error, msg string) error {
	return domain.Infrastructure(errors.Wrap(err, "mongo"), msg)
}
