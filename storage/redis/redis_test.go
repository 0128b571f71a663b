package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Insight-Services-APAC/ingenious-aux/storage"
	"github.com/redis/go-redis/v9"
)

func TestRedisStorage(t *testing.T) {
	// Skip test if Redis is not available
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   2, // Use separate DB for storage tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	defer client.FlushDB(ctx)

	s, err := New(Config{
		Client: client,
	})
	if err != nil {
		t.Fatalf("Failed to create Redis storage: %v", err)
	}
	defer s.Close()

	t.Run("SetAndGet", func(t *testing.T) {
		testSetAndGet(t, s)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		testGetNonExistent(t, s)
	})

	t.Run("TTL", func(t *testing.T) {
		testTTL(t, s)
	})

	t.Run("Scopes", func(t *testing.T) {
		testScopes(t, s)
	})

	t.Run("DeleteKey", func(t *testing.T) {
		testDeleteKey(t, s)
	})

	t.Run("DeleteScope", func(t *testing.T) {
		testDeleteScope(t, s)
	})
}

func testSetAndGet(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	key := "schema"
	data := []byte(`{"type": "object"}`)

	err := s.Set(ctx, key, data)
	if err != nil {
		t.Fatalf("Failed to set data: %v", err)
	}

	item, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get data: %v", err)
	}

	if item == nil {
		t.Fatal("Expected item to exist, got nil")
	}

	if string(item.Data) != string(data) {
		t.Errorf("Expected data %s, got %s", data, item.Data)
	}

	if item.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}

	if item.ExpiresAt != nil {
		t.Error("ExpiresAt should be nil for data without TTL")
	}
}

func testGetNonExistent(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	key := "non-existent-key"

	item, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get non-existent key: %v", err)
	}

	if item != nil {
		t.Error("Expected nil for non-existent key, got item")
	}
}

func testTTL(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	key := "ttl-key"
	data := []byte("ttl data")
	ttl := 100 * time.Millisecond

	err := s.Set(ctx, key, data, storage.WithTTL(ttl))
	if err != nil {
		t.Fatalf("Failed to set data with TTL: %v", err)
	}

	item, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get data: %v", err)
	}

	if item == nil {
		t.Fatal("Expected item to exist, got nil")
	}

	if item.ExpiresAt == nil {
		t.Fatal("ExpiresAt should not be nil for data with TTL")
	}

	time.Sleep(ttl + 50*time.Millisecond)

	item, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get expired data: %v", err)
	}

	if item != nil {
		t.Error("Expected nil for expired data, got item")
	}
}

func testScopes(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	key := "scope-key"
	globalData := []byte("global schema")
	workflowData := []byte("workflow schema")
	revisionData := []byte("revision schema")

	err := s.Set(ctx, key, globalData)
	if err != nil {
		t.Fatalf("Failed to set global data: %v", err)
	}

	err = s.Set(ctx, key, workflowData, storage.WithWorkflow("bike-insights"))
	if err != nil {
		t.Fatalf("Failed to set workflow data: %v", err)
	}

	err = s.Set(ctx, key, revisionData, storage.WithRevision("bike-insights", "rev-1"))
	if err != nil {
		t.Fatalf("Failed to set revision data: %v", err)
	}

	item, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get global data: %v", err)
	}
	if item == nil || string(item.Data) != string(globalData) {
		t.Errorf("Expected global data %s, got %v", globalData, item)
	}

	item, err = s.Get(ctx, key, storage.WithWorkflow("bike-insights"))
	if err != nil {
		t.Fatalf("Failed to get workflow data: %v", err)
	}
	if item == nil || string(item.Data) != string(workflowData) {
		t.Errorf("Expected workflow data %s, got %v", workflowData, item)
	}

	item, err = s.Get(ctx, key, storage.WithRevision("bike-insights", "rev-1"))
	if err != nil {
		t.Fatalf("Failed to get revision data: %v", err)
	}
	if item == nil || string(item.Data) != string(revisionData) {
		t.Errorf("Expected revision data %s, got %v", revisionData, item)
	}

	// Data in different scopes should be isolated
	item, err = s.Get(ctx, key, storage.WithWorkflow("other-workflow"))
	if err != nil {
		t.Fatalf("Failed to get data for different workflow: %v", err)
	}
	if item != nil {
		t.Error("Expected nil for different workflow scope, got item")
	}
}

func testDeleteKey(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	key := "delete-key"
	data := []byte("delete data")

	err := s.Set(ctx, key, data)
	if err != nil {
		t.Fatalf("Failed to set data: %v", err)
	}

	item, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get data: %v", err)
	}
	if item == nil {
		t.Fatal("Expected item to exist before deletion")
	}

	err = s.Delete(ctx, storage.WithKey(key))
	if err != nil {
		t.Fatalf("Failed to delete key: %v", err)
	}

	item, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get data after deletion: %v", err)
	}
	if item != nil {
		t.Error("Expected nil after deletion, got item")
	}
}

func testDeleteScope(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	workflow := "delete-workflow"

	keys := []string{"schema", "hierarchy", "patterns"}
	for _, key := range keys {
		data := []byte("data for " + key)
		err := s.Set(ctx, key, data, storage.WithWorkflow(workflow))
		if err != nil {
			t.Fatalf("Failed to set data for key %s: %v", key, err)
		}
	}

	for _, key := range keys {
		item, err := s.Get(ctx, key, storage.WithWorkflow(workflow))
		if err != nil {
			t.Fatalf("Failed to get data for key %s: %v", key, err)
		}
		if item == nil {
			t.Fatalf("Expected item to exist for key %s before deletion", key)
		}
	}

	err := s.Delete(ctx, storage.WithWorkflow(workflow))
	if err != nil {
		t.Fatalf("Failed to delete workflow scope: %v", err)
	}

	for _, key := range keys {
		item, err := s.Get(ctx, key, storage.WithWorkflow(workflow))
		if err != nil {
			t.Fatalf("Failed to get data for key %s after deletion: %v", key, err)
		}
		if item != nil {
			t.Errorf("Expected nil after scope deletion for key %s, got item", key)
		}
	}
}
