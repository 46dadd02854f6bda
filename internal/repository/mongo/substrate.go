package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"hermes/internal/logger"
	repo "hermes/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const collectionName = "kv"

type entry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	Seq       int64     `bson:"seq"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Substrate хранит каждый раздел отдельным документом. Пакетной записи нет:
// standalone-сервер не поддерживает транзакции, откат делает хранилище записей.
type Substrate struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func New(ctx context.Context, uri, database string) (*Substrate, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Error("Repository: Не удалось подключиться к MongoDB", err)
		return nil, fmt.Errorf("подключение к mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: MongoDB подключена", zap.String("database", database))
	return &Substrate{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
	}, nil
}

func (s *Substrate) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Substrate) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Substrate) Get(ctx context.Context, key string) (string, error) {
	var doc entry
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("чтение ключа %s: %w", key, err)
	}
	return doc.Value, nil
}

func (s *Substrate) Set(ctx context.Context, key, value string) error {
	now := time.Now()
	update := bson.M{
		"$set":         bson.M{"value": value, "updated_at": now},
		"$setOnInsert": bson.M{"seq": now.UnixNano()},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("запись ключа %s: %w", key, err)
	}
	return nil
}

func (s *Substrate) Remove(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("удаление ключа %s: %w", key, err)
	}
	return nil
}

func (s *Substrate) Keys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}).SetProjection(bson.M{"_id": 1})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("получение ключей: %w", err)
	}

	var docs []entry
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("чтение курсора: %w", err)
	}

	keys := make([]string, len(docs))
	for i, doc := range docs {
		keys[i] = doc.Key
	}
	return keys, nil
}
