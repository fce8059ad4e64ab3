package summarizer

import "testing"

func TestSummaryCacheGetSet(t *testing.T) {
	cache := newSummaryCache(2)
	if cache == nil {
		t.Fatalf("expected cache instance")
	}

	cache.set("key", "value")

	summary, ok := cache.get("key")
	if !ok {
		t.Fatalf("expected cached summary to be present")
	}

	if summary != "value" {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func TestSummaryCacheIgnoresEmptyValues(t *testing.T) {
	cache := newSummaryCache(2)
	cache.set("", "value")
	cache.set("key", "")

	if len(cache.entries) != 0 {
		t.Fatalf("expected empty key or summary to be ignored, got %d entries", len(cache.entries))
	}
}

func TestSummaryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := newSummaryCache(2)

	cache.set("a", "summary-a")
	cache.set("b", "summary-b")

	if _, ok := cache.get("a"); !ok {
		t.Fatalf("expected entry a to exist before eviction check")
	}

	cache.set("c", "summary-c")

	if _, ok := cache.get("a"); !ok {
		t.Fatalf("expected entry a to remain after evicting least recently used")
	}

	if _, ok := cache.get("b"); ok {
		t.Fatalf("expected entry b to be evicted")
	}

	if _, ok := cache.get("c"); !ok {
		t.Fatalf("expected entry c to be cached")
	}
}

func TestNilSummaryCache(t *testing.T) {
	var cache *summaryCache
	cache.set("key", "value")

	if _, ok := cache.get("key"); ok {
		t.Fatalf("expected nil cache to miss")
	}

	if newSummaryCache(0) != nil {
		t.Fatalf("expected nil cache for non-positive size")
	}
}

func TestSummaryCacheKey(t *testing.T) {
	keyA := summaryCacheKey(" https://example.com/post?utm_source=rss ", " Example post text ")
	keyB := summaryCacheKey("https://example.com/post", "Example post text")

	if keyA == "" || keyB == "" {
		t.Fatalf("expected non-empty cache keys")
	}

	if keyA != keyB {
		t.Fatalf("expected canonicalized cache keys to match, got %q vs %q", keyA, keyB)
	}

	if key := summaryCacheKey("https://example.com/post", " "); key != "" {
		t.Fatalf("expected empty cache key when text is empty, got %q", key)
	}

	if key := summaryCacheKey("https://example.com/post", "edited text"); key == keyB {
		t.Fatalf("expected edited text to change the key")
	}
}
