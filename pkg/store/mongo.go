package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/observability"
)

// MongoStore keeps records in a MongoDB collection, one document per
// record with a (split, index) position. Materialization is single-writer
// per split, so positions are assigned by counting rather than with a
// counter document.
type MongoStore struct {
	client  *mongo.Client
	records *mongo.Collection
	meta    *mongo.Collection
}

// MongoConfig configures a MongoDB-backed store.
type MongoConfig struct {
	URI      string
	Database string

	// Collection prefix, e.g. "mnist" yields "mnist_records" and
	// "mnist_meta". Required so datasets can share a database.
	Prefix string
}

// mongoRecord wraps a Record with its position.
type mongoRecord struct {
	Split  string `bson:"split"`
	Index  int    `bson:"index"`
	Record Record `bson:"record"`
}

// NewMongoStore connects to MongoDB, verifies the connection, and ensures
// the position index exists.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" || cfg.Prefix == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo store requires database and prefix")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "connect to mongodb")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, errors.ErrCodeStore, "ping mongodb")
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:  client,
		records: db.Collection(cfg.Prefix + "_records"),
		meta:    db.Collection(cfg.Prefix + "_meta"),
	}

	_, err = s.records.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "split", Value: 1}, {Key: "index", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, errors.ErrCodeStore, "create record index")
	}
	return s, nil
}

func (s *MongoStore) Append(ctx context.Context, split string, rec *Record) error {
	n, err := s.Count(ctx, split)
	if err != nil {
		return err
	}
	doc := mongoRecord{Split: split, Index: n, Record: *rec}
	if _, err := s.records.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "append record")
	}
	observability.Store().OnAppend(ctx, split, 0)
	return nil
}

func (s *MongoStore) Read(ctx context.Context, split string, index int) (*Record, error) {
	var doc mongoRecord
	err := s.records.FindOne(ctx, bson.M{"split": split, "index": index}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeRecordNotFound,
			"record %d not in split %q", index, split)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "read record")
	}
	observability.Store().OnRead(ctx, split, index)
	return &doc.Record, nil
}

func (s *MongoStore) Count(ctx context.Context, split string) (int, error) {
	n, err := s.records.CountDocuments(ctx, bson.M{"split": split})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeStore, "count records")
	}
	return int(n), nil
}

func (s *MongoStore) SaveInfo(ctx context.Context, split string, info SplitInfo) error {
	return s.setMeta(ctx, "info:"+split, info)
}

func (s *MongoStore) LoadInfo(ctx context.Context, split string) (SplitInfo, error) {
	var info SplitInfo
	err := s.getMeta(ctx, "info:"+split, &info, fmt.Sprintf("info for split %q", split))
	return info, err
}

func (s *MongoStore) Reset(ctx context.Context, split string) error {
	if _, err := s.records.DeleteMany(ctx, bson.M{"split": split}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "reset split records")
	}
	if _, err := s.meta.DeleteOne(ctx, bson.M{"_id": "info:" + split}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "reset split info")
	}
	return nil
}

func (s *MongoStore) SaveDescriptor(ctx context.Context, d Descriptor) error {
	return s.setMeta(ctx, "descriptor", d)
}

func (s *MongoStore) LoadDescriptor(ctx context.Context) (Descriptor, error) {
	var d Descriptor
	err := s.getMeta(ctx, "descriptor", &d, "descriptor")
	return d, err
}

func (s *MongoStore) setMeta(ctx context.Context, id string, v any) error {
	_, err := s.meta.ReplaceOne(ctx,
		bson.M{"_id": id},
		bson.M{"_id": id, "value": v},
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "write metadata")
	}
	return nil
}

func (s *MongoStore) getMeta(ctx context.Context, id string, v any, what string) error {
	var doc struct {
		Value bson.Raw `bson:"value"`
	}
	err := s.meta.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return notFound(what)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "read metadata")
	}
	if err := bson.Unmarshal(doc.Value, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "decode metadata")
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
