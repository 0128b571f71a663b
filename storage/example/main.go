package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Insight-Services-APAC/ingenious-aux/storage"
	"github.com/Insight-Services-APAC/ingenious-aux/storage/memory"
)

func main() {
	store, err := memory.New(1000)
	if err != nil {
		log.Fatal("Failed to create storage:", err)
	}
	defer store.Close()

	ctx := context.Background()
	workflow := "submission-over-criteria"

	// Global storage
	fmt.Println("=== Global Storage ===")
	err = store.Set(ctx, "app-config", []byte(`{"version": "1.0", "debug": true}`))
	if err != nil {
		log.Fatal("Failed to set global config:", err)
	}

	item, err := store.Get(ctx, "app-config")
	if err != nil {
		log.Fatal("Failed to get global config:", err)
	}
	if item != nil {
		fmt.Printf("Global config: %s\n", string(item.Data))
	}

	// Workflow-level storage
	fmt.Println("\n=== Workflow Storage ===")
	err = store.Set(ctx, "defaults", []byte(`{"container": "submissions"}`),
		storage.WithWorkflow(workflow))
	if err != nil {
		log.Fatal("Failed to set workflow defaults:", err)
	}

	item, err = store.Get(ctx, "defaults", storage.WithWorkflow(workflow))
	if err != nil {
		log.Fatal("Failed to get workflow defaults:", err)
	}
	if item != nil {
		fmt.Printf("Workflow %s defaults: %s\n", workflow, string(item.Data))
	}

	// Revision-level storage with a TTL, the shape the schema cache uses.
	fmt.Println("\n=== Revision Storage ===")
	revisionID := "rev-42"
	err = store.Set(ctx, "schema", []byte(`{"type": "object"}`),
		storage.WithRevision(workflow, revisionID),
		storage.WithTTL(5*time.Minute))
	if err != nil {
		log.Fatal("Failed to cache schema:", err)
	}

	item, err = store.Get(ctx, "schema", storage.WithRevision(workflow, revisionID))
	if err != nil {
		log.Fatal("Failed to get cached schema:", err)
	}
	if item != nil {
		fmt.Printf("Cached schema for %s/%s: %s\n", workflow, revisionID, string(item.Data))
	}

	// Publishing a new revision evicts everything cached under the old one.
	fmt.Println("\n=== Revision Eviction ===")
	if err := store.Delete(ctx, storage.WithRevision(workflow, revisionID)); err != nil {
		log.Fatal("Failed to evict revision:", err)
	}
	item, err = store.Get(ctx, "schema", storage.WithRevision(workflow, revisionID))
	if err != nil {
		log.Fatal("Failed to get after eviction:", err)
	}
	fmt.Printf("Schema after eviction: %v\n", item)
}
