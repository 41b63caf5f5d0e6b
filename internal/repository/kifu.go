package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"kifu_editor/internal/bootstrap"
	"kifu_editor/internal/domain/document"
	appErrors "kifu_editor/internal/errors"
)

const archiveCollection = "records"

// KifuRepository keeps open sessions in redis and archived records in mongo.
type KifuRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewKifuRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *KifuRepository {
	return &KifuRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

func sessionKey(id string) string {
	return "kifu:session:" + id
}

func (k *KifuRepository) CreateSession(ctx context.Context, session document.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	ok, err := k.redis.SetNX(ctx, sessionKey(session.ID), data, k.cfg.SessionTTL()).Result()
	if err != nil {
		k.log.Errorf("failed to create session %s: %v", session.ID, err)
		return fmt.Errorf("%w: %v", appErrors.ErrStorageUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: session %s already exists", appErrors.ErrInternal, session.ID)
	}
	return nil
}

func (k *KifuRepository) GetSession(ctx context.Context, id string) (document.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := k.redis.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return document.Session{}, appErrors.ErrDocumentNotFound
	} else if err != nil {
		k.log.Errorf("failed to load session %s: %v", id, err)
		return document.Session{}, fmt.Errorf("%w: %v", appErrors.ErrStorageUnavailable, err)
	}

	var session document.Session
	if err := json.Unmarshal(data, &session); err != nil {
		k.log.Errorf("session %s is corrupted: %v", id, err)
		return document.Session{}, fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	return session, nil
}

// SaveSession overwrites an existing session and renews its TTL.
func (k *KifuRepository) SaveSession(ctx context.Context, session document.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	ok, err := k.redis.SetXX(ctx, sessionKey(session.ID), data, k.cfg.SessionTTL()).Result()
	if err != nil {
		k.log.Errorf("failed to save session %s: %v", session.ID, err)
		return fmt.Errorf("%w: %v", appErrors.ErrStorageUnavailable, err)
	}
	if !ok {
		return appErrors.ErrDocumentNotFound
	}
	return nil
}

func (k *KifuRepository) DeleteSession(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := k.redis.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrStorageUnavailable, err)
	}
	if n == 0 {
		return appErrors.ErrDocumentNotFound
	}
	return nil
}

func (k *KifuRepository) ArchiveRecord(ctx context.Context, record document.ArchivedRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := k.mongo.Collection(archiveCollection)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		k.log.Errorf("failed to insert record to database: %v", err)
		return fmt.Errorf("%w: %v", appErrors.ErrStorageUnavailable, err)
	}

	k.log.Infof("record archived with id: %s", record.ID)
	return nil
}

func (k *KifuRepository) GetArchivedRecord(ctx context.Context, id string) (document.ArchivedRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := k.mongo.Collection(archiveCollection)

	var record document.ArchivedRecord
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return record, appErrors.ErrArchiveNotFound
	} else if err != nil {
		k.log.Error(err)
		return record, fmt.Errorf("%w: %v", appErrors.ErrStorageUnavailable, err)
	}
	return record, nil
}

func (k *KifuRepository) ListArchive(ctx context.Context, pageNum int) (*document.ArchiveResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := k.mongo.Collection(archiveCollection)
	pageLimit := pageLimitOrDefault(k.cfg.PageLimitRecords)

	total, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		k.log.Error(err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrStorageUnavailable, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "archived_at", Value: -1}}).
		SetSkip(int64((pageNum - 1) * pageLimit)).
		SetLimit(int64(pageLimit)).
		SetProjection(bson.M{"kifu_json": 0})

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		k.log.Error(err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrStorageUnavailable, err)
	}
	defer cursor.Close(ctx)

	records := make([]document.ArchivedRecord, 0, pageLimit)
	for cursor.Next(ctx) {
		var record document.ArchivedRecord
		if err = cursor.Decode(&record); err != nil {
			k.log.Error(err)
			return nil, fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
		}
		records = append(records, record)
	}

	return &document.ArchiveResponse{
		PageNum:    pageNum,
		TotalPages: (int(total) + pageLimit - 1) / pageLimit,
		Records:    records,
	}, nil
}

func pageLimitOrDefault(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

// paginate cuts one page out of records the way the archive pages are cut.
func paginate(records []document.ArchivedRecord, pageNum, pageLimit int) *document.ArchiveResponse {
	totalPages := (len(records) + pageLimit - 1) / pageLimit
	start := (pageNum - 1) * pageLimit
	end := start + pageLimit
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}
	page := make([]document.ArchivedRecord, 0, end-start)
	for _, r := range records[start:end] {
		r.KifuJSON = ""
		page = append(page, r)
	}
	return &document.ArchiveResponse{
		PageNum:    pageNum,
		TotalPages: totalPages,
		Records:    page,
	}
}
