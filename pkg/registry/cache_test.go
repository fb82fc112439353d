package registry

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
)

func newCachedStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := NewStore(t.TempDir(), client, time.Minute)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, server
}

func cachedModel(t *testing.T) (*linear.Model, []byte) {
	t.Helper()
	model := linear.NewModel(2)
	model.SetWeight(0, 1.5)
	model.SetWeight(1, -0.5)
	model.SetBias(0.25)
	blob, err := model.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return model, blob
}

func TestSaveWritesCache(t *testing.T) {
	store, server := newCachedStore(t)
	model, blob := cachedModel(t)

	if _, err := store.Save(context.Background(), "risk", model); err != nil {
		t.Fatalf("save: %v", err)
	}
	cached, err := server.Get("model:risk")
	if err != nil {
		t.Fatalf("cache entry missing: %v", err)
	}
	if !bytes.Equal([]byte(cached), blob) {
		t.Fatalf("cached blob differs from serialized model")
	}
	if ttl := server.TTL("model:risk"); ttl != time.Minute {
		t.Fatalf("cache ttl %v, want 1m", ttl)
	}
}

func TestLoadServesCacheHit(t *testing.T) {
	store, _ := newCachedStore(t)
	ctx := context.Background()
	model, _ := cachedModel(t)

	if _, err := store.Save(ctx, "risk", model); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.Remove(store.Path("risk")); err != nil {
		t.Fatalf("remove artifact: %v", err)
	}

	loaded, err := store.Load(ctx, "risk")
	if err != nil {
		t.Fatalf("load from cache: %v", err)
	}
	if loaded.Weight(0) != 1.5 || loaded.Bias() != 0.25 {
		t.Fatalf("unexpected cached model %v bias %v", loaded.Weights(), loaded.Bias())
	}
}

func TestLoadReplacesCorruptCacheEntry(t *testing.T) {
	store, server := newCachedStore(t)
	ctx := context.Background()
	model, blob := cachedModel(t)

	if _, err := store.Save(ctx, "risk", model); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := server.Set("model:risk", "junk"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	loaded, err := store.Load(ctx, "risk")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Weight(1) != -0.5 {
		t.Fatalf("unexpected weights %v", loaded.Weights())
	}
	cached, err := server.Get("model:risk")
	if err != nil || !bytes.Equal([]byte(cached), blob) {
		t.Fatalf("cache not repaired from artifact: %q, %v", cached, err)
	}
}

func TestLoadBackfillsCache(t *testing.T) {
	store, server := newCachedStore(t)
	ctx := context.Background()
	model, blob := cachedModel(t)

	if _, err := store.Save(ctx, "risk", model); err != nil {
		t.Fatalf("save: %v", err)
	}
	server.FlushAll()

	if _, err := store.Load(ctx, "risk"); err != nil {
		t.Fatalf("load: %v", err)
	}
	cached, err := server.Get("model:risk")
	if err != nil || !bytes.Equal([]byte(cached), blob) {
		t.Fatalf("cache not backfilled: %q, %v", cached, err)
	}
}

func TestDeleteEvictsCache(t *testing.T) {
	store, server := newCachedStore(t)
	ctx := context.Background()
	model, _ := cachedModel(t)

	if _, err := store.Save(ctx, "risk", model); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "risk"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if server.Exists("model:risk") {
		t.Fatalf("cache entry survived delete")
	}
}
