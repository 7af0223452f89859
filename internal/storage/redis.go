package storage

import (
	"encoding/json"
	"time"

	"gramseva/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventChannel is the Redis pub/sub channel ledger events are broadcast on.
const EventChannel = "grievance:events"

const sweepLeaseKey = "scheduler:sweep_lease"

// PublishEvent broadcasts a grievance event over Redis Pub/Sub so realtime
// subscribers on any instance see it. A nil Redis client is a no-op.
func (s *Service) PublishEvent(ev models.GrievanceEvent) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, EventChannel, string(payload)).Err()
}

// SubscribeEvents subscribes to the broadcast channel. Callers own the
// returned PubSub and must Close it.
func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, EventChannel)
}

// AcquireSweepLease takes the cross-instance scheduler lease via SETNX so
// only one replica runs a sweep at a time. Without Redis the lease is always
// granted (single-instance deployment).
func (s *Service) AcquireSweepLease(ttl time.Duration) (bool, error) {
	if s.Redis == nil {
		return true, nil
	}
	return s.Redis.SetNX(s.Ctx, sweepLeaseKey, "1", ttl).Result()
}

// ReleaseSweepLease drops the scheduler lease early so the next tick does not
// wait out the TTL.
func (s *Service) ReleaseSweepLease() error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(s.Ctx, sweepLeaseKey).Err()
}
