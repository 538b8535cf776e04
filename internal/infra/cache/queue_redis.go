package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/queueease/booking-service/internal/domain"
)

// RedisSnapshotStore хранит снимки очередей в Redis, чтобы несколько
// экземпляров сервиса отдавали одинаковый статус
type RedisSnapshotStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSnapshotStore ключи живут ttl, после чего статус пересчитывается
func NewRedisSnapshotStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

type queueSnapshot struct {
	ServiceID          string    `json:"serviceId"`
	CurrentToken       string    `json:"currentToken"`
	NextToken          string    `json:"nextToken"`
	EstimatedWaitTime  int       `json:"estimatedWaitTime"`
	PeopleWaiting      int       `json:"peopleWaiting"`
	Status             string    `json:"status"`
	Reason             *string   `json:"reason,omitempty"`
	AverageServiceTime int       `json:"averageServiceTime"`
	DelayTime          *int      `json:"delayTime,omitempty"`
	EarlyTime          *int      `json:"earlyTime,omitempty"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

func (s *RedisSnapshotStore) key(serviceID string) string {
	return s.keyPrefix + serviceID
}

func (s *RedisSnapshotStore) Get(ctx context.Context, serviceID string) (*domain.QueueStatus, error) {
	data, err := s.client.Get(ctx, s.key(serviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrSnapshotStore, serviceID, err)
	}

	var snap queueSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrSnapshotStore, serviceID, err)
	}

	return &domain.QueueStatus{
		ServiceID:          snap.ServiceID,
		CurrentToken:       snap.CurrentToken,
		NextToken:          snap.NextToken,
		EstimatedWaitTime:  snap.EstimatedWaitTime,
		PeopleWaiting:      snap.PeopleWaiting,
		Status:             domain.QueueState(snap.Status),
		Reason:             snap.Reason,
		AverageServiceTime: snap.AverageServiceTime,
		DelayTime:          snap.DelayTime,
		EarlyTime:          snap.EarlyTime,
		LastUpdated:        snap.LastUpdated,
	}, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, status *domain.QueueStatus) error {
	data, err := json.Marshal(queueSnapshot{
		ServiceID:          status.ServiceID,
		CurrentToken:       status.CurrentToken,
		NextToken:          status.NextToken,
		EstimatedWaitTime:  status.EstimatedWaitTime,
		PeopleWaiting:      status.PeopleWaiting,
		Status:             string(status.Status),
		Reason:             status.Reason,
		AverageServiceTime: status.AverageServiceTime,
		DelayTime:          status.DelayTime,
		EarlyTime:          status.EarlyTime,
		LastUpdated:        status.LastUpdated,
	})
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrSnapshotStore, status.ServiceID, err)
	}

	if err := s.client.Set(ctx, s.key(status.ServiceID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrSnapshotStore, status.ServiceID, err)
	}

	return nil
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrSnapshotStore, addr, err)
	}

	return client, nil
}
