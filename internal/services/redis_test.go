package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"srg-miniapp-backend/internal/config"
	"srg-miniapp-backend/internal/models"
	"srg-miniapp-backend/internal/services"
)

func setupTestRedis(t *testing.T) *services.RedisService {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { redisService.Close() })
	return redisService
}

func TestRedisProfileStore(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()
	userID := int64(999999)
	defer redisService.DeleteProfile(ctx, userID)
	redisService.DeleteProfile(ctx, userID)

	if _, err := redisService.LoadProfile(ctx, userID); !errors.Is(err, services.ErrProfileNotFound) {
		t.Fatalf("Expected ErrProfileNotFound, got %v", err)
	}

	snapshot := models.NewSnapshot(userID, "redis_test", "Redis", time.Now())
	version, err := redisService.SaveProfile(ctx, snapshot)
	if err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}

	loaded, err := redisService.LoadProfile(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to load profile: %v", err)
	}
	if loaded.Version != 1 || loaded.SilverBalance != models.DefaultSilverBalance {
		t.Errorf("Unexpected stored profile: version %d silver %f", loaded.Version, loaded.SilverBalance)
	}

	loaded.SilverBalance += 500
	if _, err := redisService.AdminSaveProfile(ctx, loaded); err != nil {
		t.Fatalf("Admin save failed: %v", err)
	}

	// snapshot still carries version 0
	if _, err := redisService.SaveProfile(ctx, snapshot); !errors.Is(err, services.ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict for stale write, got %v", err)
	}

	profiles, err := redisService.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("Failed to list profiles: %v", err)
	}
	found := false
	for _, p := range profiles {
		if p.UserID == userID {
			found = true
			if p.Version != 2 {
				t.Errorf("Expected version 2 after admin save, got %d", p.Version)
			}
		}
	}
	if !found {
		t.Error("Saved profile should be listed")
	}
}

func TestRedisSessionsAndLimits(t *testing.T) {
	redisService := setupTestRedis(t)
	userID := int64(999998)

	session := &models.UserSession{
		ID:           userID,
		SessionID:    models.GenerateSessionID(),
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
	}
	if err := redisService.StoreUserSession(session, time.Minute); err != nil {
		t.Fatalf("Failed to store session: %v", err)
	}
	if _, err := redisService.GetUserSession(userID, session.SessionID); err != nil {
		t.Errorf("Failed to get session: %v", err)
	}
	redisService.DeleteUserSession(userID, session.SessionID)

	redisService.ClearRateLimit(userID, "withdraw")
	defer redisService.ClearRateLimit(userID, "withdraw")
	for i := 0; i < 2; i++ {
		allowed, err := redisService.CheckRateLimit(userID, "withdraw", 2, time.Minute)
		if err != nil {
			t.Fatalf("Failed to check rate limit: %v", err)
		}
		if !allowed {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}
	if allowed, _ := redisService.CheckRateLimit(userID, "withdraw", 2, time.Minute); allowed {
		t.Error("Third request should be limited")
	}
}

func TestRedisAuditLog(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()

	entry := &models.AuditEntry{AdminID: 1, Action: "test_action", TargetID: 2, Timestamp: models.UnixMillis(time.Now())}
	if err := redisService.AppendAudit(ctx, entry); err != nil {
		t.Fatalf("Failed to append audit entry: %v", err)
	}

	entries, err := redisService.RecentAudit(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "test_action" {
		t.Errorf("Expected latest entry first, got %+v", entries)
	}
}
