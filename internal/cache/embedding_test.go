package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/atelierhq/atelier/internal/cache"
)

// countingEmbed returns a distinct deterministic vector per text and
// counts calls per normalized input.
type countingEmbed struct {
	mu    sync.Mutex
	calls map[string]int
	total int
}

func newCountingEmbed() *countingEmbed {
	return &countingEmbed{calls: map[string]int{}}
}

func (e *countingEmbed) embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[text]++
	e.total++
	return []float32{float32(len(text)), 1}, nil
}

func TestGetOrComputeCallsModelAtMostOnce(t *testing.T) {
	e := newCountingEmbed()
	c := cache.NewEmbeddingCache(e.embed, 100)
	ctx := context.Background()

	first, err := c.GetOrCompute(ctx, "some text")
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	second, err := c.GetOrCompute(ctx, "some text")
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	if e.total != 1 {
		t.Errorf("model invoked %d times, want 1", e.total)
	}
	if len(first) != len(second) {
		t.Fatalf("vector lengths differ")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("vectors not bit-identical at dim %d", i)
		}
	}
}

func TestNormalizationFoldsCaseAndWhitespace(t *testing.T) {
	e := newCountingEmbed()
	c := cache.NewEmbeddingCache(e.embed, 100)
	ctx := context.Background()

	if _, err := c.GetOrCompute(ctx, "Hello"); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if _, err := c.GetOrCompute(ctx, "hello"); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if _, err := c.GetOrCompute(ctx, "  hello  "); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	if e.total != 1 {
		t.Errorf("model invoked %d times, want 1 (case/whitespace variants share one entry)", e.total)
	}
	if c.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", c.Len())
	}
}

func TestInsertionOrderEviction(t *testing.T) {
	e := newCountingEmbed()
	c := cache.NewEmbeddingCache(e.embed, 3)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three", "four"} {
		if _, err := c.GetOrCompute(ctx, text); err != nil {
			t.Fatalf("GetOrCompute(%q) failed: %v", text, err)
		}
	}

	if c.Len() != 3 {
		t.Errorf("cache holds %d entries, want 3 after eviction", c.Len())
	}

	// "one" was inserted first and must have been evicted.
	if _, err := c.GetOrCompute(ctx, "one"); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if got := e.calls["one"]; got != 2 {
		t.Errorf("model invoked %d times for evicted text, want 2", got)
	}

	// "four" is the newest and must still be cached.
	if _, err := c.GetOrCompute(ctx, "four"); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if got := e.calls["four"]; got != 1 {
		t.Errorf("model invoked %d times for newest text, want 1", got)
	}
}

func TestEmbedErrorIsNotCached(t *testing.T) {
	calls := 0
	fail := errors.New("backend down")
	embed := func(_ context.Context, _ string) ([]float32, error) {
		calls++
		if calls == 1 {
			return nil, fail
		}
		return []float32{1}, nil
	}
	c := cache.NewEmbeddingCache(embed, 10)
	ctx := context.Background()

	if _, err := c.GetOrCompute(ctx, "text"); !errors.Is(err, fail) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed computation was cached: %d entries", c.Len())
	}

	if _, err := c.GetOrCompute(ctx, "text"); err != nil {
		t.Fatalf("expected recovery on second call, got %v", err)
	}
}

func TestConcurrentGetsDoNotCorrupt(t *testing.T) {
	e := newCountingEmbed()
	c := cache.NewEmbeddingCache(e.embed, 50)
	ctx := context.Background()

	texts := []string{"alpha", "beta", "gamma", "delta"}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for _, text := range texts {
			wg.Add(1)
			go func(text string) {
				defer wg.Done()
				if _, err := c.GetOrCompute(ctx, text); err != nil {
					t.Errorf("GetOrCompute(%q) failed: %v", text, err)
				}
			}(text)
		}
	}
	wg.Wait()

	if c.Len() != len(texts) {
		t.Errorf("cache holds %d entries, want %d", c.Len(), len(texts))
	}
}
