package briefing

import (
	"errors"
	"testing"
	"time"
)

func TestNewSweeperRequiresCache(t *testing.T) {
	if _, err := NewSweeper(SweeperConfig{}); !errors.Is(err, errMissingCacheService) {
		t.Fatalf("expected missing cache error, got %v", err)
	}
}

func TestSweeperStartAndStop(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	service := newTestCache(t, newTestDB(t), &now)

	sweeper, err := NewSweeper(SweeperConfig{Cache: service})
	if err != nil {
		t.Fatalf("failed to create sweeper: %v", err)
	}
	if err := sweeper.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	sweeper.Stop()
}
