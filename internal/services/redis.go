package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"srg-miniapp-backend/internal/config"
	"srg-miniapp-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	service := &RedisService{
		client: client,
		ctx:    ctx,
	}

	return service, nil
}

func (s *RedisService) StoreUserSession(session *models.UserSession, expiry time.Duration) error {
	key := fmt.Sprintf(KeyUserSession, session.ID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, expiry).Err()
}

func (s *RedisService) GetUserSession(userID int64, sessionID string) (*models.UserSession, error) {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var session models.UserSession
	err = json.Unmarshal([]byte(data), &session)
	if err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	updatedData, _ := json.Marshal(session)
	s.client.Set(s.ctx, key, updatedData, TTLUserSession)

	return &session, nil
}

func (s *RedisService) DeleteUserSession(userID int64, sessionID string) error {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) StoreUser(user *models.TelegramUser) error {
	key := fmt.Sprintf(KeyUserInfo, user.ID)

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, TTLUserInfo).Err()
}

func (s *RedisService) GetUser(userID int64) (*models.TelegramUser, error) {
	key := fmt.Sprintf(KeyUserInfo, userID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var user models.TelegramUser
	err = json.Unmarshal([]byte(data), &user)
	return &user, err
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) LoadProfile(ctx context.Context, userID int64) (*models.PlayerSnapshot, error) {
	key := fmt.Sprintf(KeyProfile, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %v", err)
	}

	var snapshot models.PlayerSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %v", err)
	}

	return &snapshot, nil
}

// saveProfileScript writes a snapshot only if the stored version still
// matches the one the caller read. A missing record counts as version 0.
var saveProfileScript = redis.NewScript(`
	local key = KEYS[1]
	local index = KEYS[2]
	local expected = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if data then
		local stored = cjson.decode(data)
		local version = tonumber(stored.version) or 0
		if version ~= expected then
			return redis.error_reply("version conflict")
		end
	elseif expected ~= 0 then
		return redis.error_reply("profile not found")
	end

	redis.call("SET", key, ARGV[2])
	redis.call("SADD", index, ARGV[3])

	return expected + 1
`)

func (s *RedisService) SaveProfile(ctx context.Context, snapshot *models.PlayerSnapshot) (int64, error) {
	return s.casProfile(ctx, snapshot)
}

// AdminSaveProfile stores an admin-edited snapshot as is, without the
// accrual or rounding a player save goes through. It is still versioned.
func (s *RedisService) AdminSaveProfile(ctx context.Context, snapshot *models.PlayerSnapshot) (int64, error) {
	if snapshot.Version == 0 {
		return 0, ErrProfileNotFound
	}
	return s.casProfile(ctx, snapshot)
}

func (s *RedisService) casProfile(ctx context.Context, snapshot *models.PlayerSnapshot) (int64, error) {
	expected := snapshot.Version

	record := *snapshot
	record.Version = expected + 1
	data, err := json.Marshal(&record)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal profile: %v", err)
	}

	key := fmt.Sprintf(KeyProfile, snapshot.UserID)
	version, err := saveProfileScript.Run(ctx, s.client,
		[]string{key, KeyProfileIndex},
		expected, data, snapshot.UserID,
	).Int64()
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "version conflict"):
			return 0, ErrVersionConflict
		case strings.Contains(err.Error(), "profile not found"):
			return 0, ErrProfileNotFound
		}
		return 0, fmt.Errorf("failed to save profile: %v", err)
	}

	return version, nil
}

func (s *RedisService) ListProfiles(ctx context.Context) ([]*models.PlayerSnapshot, error) {
	ids, err := s.client.SMembers(ctx, KeyProfileIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %v", err)
	}
	if len(ids) == 0 {
		return []*models.PlayerSnapshot{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))

	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, "profile:"+id)
	}

	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %v", err)
	}

	profiles := make([]*models.PlayerSnapshot, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}

		var snapshot models.PlayerSnapshot
		if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
			continue
		}

		profiles = append(profiles, &snapshot)
	}

	return profiles, nil
}

func (s *RedisService) DeleteProfile(ctx context.Context, userID int64) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(KeyProfile, userID))
	pipe.SRem(ctx, KeyProfileIndex, userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisService) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, KeyAdminLog, data)
	pipe.LTrim(ctx, KeyAdminLog, 0, AdminLogSize-1)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append admin log: %v", err)
	}
	return nil
}

func (s *RedisService) RecentAudit(ctx context.Context, limit int64) ([]*models.AuditEntry, error) {
	if limit <= 0 || limit > AdminLogSize {
		limit = AdminLogSize
	}

	items, err := s.client.LRange(ctx, KeyAdminLog, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read admin log: %v", err)
	}

	entries := make([]*models.AuditEntry, 0, len(items))
	for _, item := range items {
		var entry models.AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

func (s *RedisService) CheckRateLimit(userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(userID int64, action string) error {
	key := fmt.Sprintf(KeyRateLimit, userID, action)
	return s.client.Del(s.ctx, key).Err()
}
