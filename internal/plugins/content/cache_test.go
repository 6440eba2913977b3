package content

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (PublicCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisCache(rdb, ttl), mr
}

// fill stores v the way the service does: miss, then Set on the slot.
func fill(t *testing.T, cache PublicCache, key string, v any) {
	t.Helper()
	var discard any
	slot, hit := cache.Get(context.Background(), key, &discard)
	if hit {
		t.Fatalf("expected miss before filling %s", key)
	}
	cache.Set(context.Background(), slot, v)
}

func TestRedisCache_SetGet(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	fill(t, cache, "item:en:x", PublicItem{Slug: "x", Title: "X"})

	var got PublicItem
	if _, hit := cache.Get(ctx, "item:en:x", &got); !hit {
		t.Fatal("expected cache hit")
	}
	if got.Slug != "x" || got.Title != "X" {
		t.Errorf("unexpected cached value %+v", got)
	}
	if _, hit := cache.Get(ctx, "item:en:other", &got); hit {
		t.Error("expected miss for unknown key")
	}
}

func TestRedisCache_InvalidateBumpsGeneration(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	fill(t, cache, "list:en", publicPage{Total: 1})
	if !mr.Exists("folio:content:v0:list:en") {
		t.Fatalf("expected generation 0 key, have %v", mr.Keys())
	}

	cache.Invalidate(ctx)

	var page publicPage
	if _, hit := cache.Get(ctx, "list:en", &page); hit {
		t.Error("expected miss after invalidation")
	}
	fill(t, cache, "list:en", publicPage{Total: 2})
	if !mr.Exists("folio:content:v1:list:en") {
		t.Errorf("expected generation 1 key, have %v", mr.Keys())
	}
}

func TestRedisCache_FillAfterInvalidateIsNeverRead(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	var page publicPage
	slot, _ := cache.Get(ctx, "list:en", &page)
	// A write lands between the reader's database query and its fill.
	cache.Invalidate(ctx)
	cache.Set(ctx, slot, publicPage{Total: 99})

	if _, hit := cache.Get(ctx, "list:en", &page); hit {
		t.Errorf("stale fill from before invalidation was served: %+v", page)
	}
}

func TestRedisCache_EntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	fill(t, cache, "k", 1)
	mr.FastForward(31 * time.Second)

	var v int
	if _, hit := cache.Get(ctx, "k", &v); hit {
		t.Error("expected entry to expire")
	}
}

func TestRedisCache_UnavailableIsMiss(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	mr.Close()

	// None of these may panic or block.
	var v int
	slot, hit := cache.Get(ctx, "k", &v)
	if hit || slot != "" {
		t.Errorf("expected miss with no slot while redis is down, got %q %v", slot, hit)
	}
	cache.Set(ctx, slot, 1)
	cache.Invalidate(ctx)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	mr.Set("folio:content:v0:k", "{not json")

	var v PublicItem
	if _, hit := cache.Get(context.Background(), "k", &v); hit {
		t.Error("expected miss for corrupt entry")
	}
}

func TestListPublic_ServedFromCache(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	repo := newMemRepo()
	svc := newTestService(repo, cache)
	ctx := context.Background()

	item, _ := svc.Create(ctx, projectInput("x", map[string]string{"en": "X"}))
	if _, err := svc.Transition(ctx, item.ID, StatusPublished); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	items, _, err := svc.ListPublic(ctx, "en", ListFilter{})
	if err != nil || len(items) != 1 {
		t.Fatalf("expected 1 item, got %d (err %v)", len(items), err)
	}

	// A change behind the service's back is not visible until a write
	// through the service invalidates the cache.
	repo.items[item.ID].Translations[0].Title = "Changed"
	items, _, _ = svc.ListPublic(ctx, "en", ListFilter{})
	if items[0].Title != "X" {
		t.Errorf("expected cached title, got %q", items[0].Title)
	}

	if _, err := svc.Update(ctx, item.ID, UpdateInput{}); err != nil {
		t.Fatalf("updating: %v", err)
	}
	items, _, _ = svc.ListPublic(ctx, "en", ListFilter{})
	if items[0].Title != "Changed" {
		t.Errorf("expected fresh title after invalidation, got %q", items[0].Title)
	}
}

func TestListPublic_ArchiveDuringFillIsNotCached(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	repo := newMemRepo()
	svc := newTestService(repo, cache)
	ctx := context.Background()

	item, _ := svc.Create(ctx, projectInput("x", map[string]string{"en": "X"}))
	if _, err := svc.Transition(ctx, item.ID, StatusPublished); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	// Archive right after the public query read the published row.
	repo.afterList = func() {
		repo.afterList = nil
		if _, err := svc.Transition(ctx, item.ID, StatusArchived); err != nil {
			t.Errorf("archiving: %v", err)
		}
	}
	if items, _, _ := svc.ListPublic(ctx, "en", ListFilter{}); len(items) != 1 {
		t.Fatalf("expected the in-flight read to see 1 item, got %d", len(items))
	}

	items, _, err := svc.ListPublic(ctx, "en", ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("archived item still publicly listed: %+v", items)
	}
}
