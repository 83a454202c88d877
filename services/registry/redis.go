package registry

import (
	"context"
	"encoding/json"
	"time"

	"brightcall/models"
	"brightcall/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "callsession:"

// Sessions with no scheduled expiry still fall out of Redis eventually; a
// call that never reaches a terminal status should not pin its entry forever.
const sessionMaxTTL = 4 * time.Hour

// RedisRegistry stores call sessions in Redis so the registry survives a
// process restart mid-call. Expiry maps onto key TTLs.
type RedisRegistry struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRegistry returns a registry backed by the given Redis client.
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client, now: time.Now}
}

func (r *RedisRegistry) Create(data models.SessionData) (string, error) {
	now := r.now()
	session := &models.CallSession{
		ID:           newCorrelationID(now),
		To:           data.To,
		LeadName:     data.LeadName,
		Organization: data.Organization,
		Email:        data.Email,
		CreatedAt:    now,
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, sessionKeyPrefix+session.ID, raw, sessionMaxTTL).Err(); err != nil {
		return "", err
	}
	return session.ID, nil
}

func (r *RedisRegistry) Get(id string) (*models.CallSession, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := r.client.Get(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		if err != redis.Nil {
			utils.GetLogger().Warn("Failed to fetch call session from Redis",
				zap.String("correlation_id", id), zap.Error(err))
		}
		return nil, false
	}

	var session models.CallSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		utils.GetLogger().Warn("Corrupt call session in Redis",
			zap.String("correlation_id", id), zap.Error(err))
		return nil, false
	}
	return &session, true
}

func (r *RedisRegistry) ScheduleExpiry(id string, delay time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// EXPIRE on a missing key is a no-op, which gives us idempotency for free.
	if err := r.client.Expire(ctx, sessionKeyPrefix+id, delay).Err(); err != nil {
		utils.GetLogger().Warn("Failed to schedule session expiry",
			zap.String("correlation_id", id), zap.Error(err))
	}
}

var _ Registry = (*RedisRegistry)(nil)
