package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type page struct {
	Titles []string `json:"titles"`
}

func TestRemember_HitsAfterLoad(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	loads := 0
	load := func() (page, error) {
		loads++
		return page{Titles: []string{"a", "b"}}, nil
	}

	v, hit, err := Remember(ctx, c, NamespaceModules, time.Minute, load, "HOME")
	require.NoError(t, err)
	if hit {
		t.Error("Expected first read to miss")
	}

	v2, hit, err := Remember(ctx, c, NamespaceModules, time.Minute, load, "HOME")
	require.NoError(t, err)
	if !hit {
		t.Error("Expected second read to hit")
	}
	if loads != 1 {
		t.Errorf("Expected 1 load, got %d", loads)
	}
	require.Equal(t, v, v2)
}

func TestRemember_BumpInvalidates(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	loads := 0
	load := func() (int, error) {
		loads++
		return loads, nil
	}

	first, _, _ := Remember(ctx, c, NamespaceArticles, time.Minute, load, "slug", "hello")
	require.NoError(t, c.Bump(ctx, NamespaceArticles))
	second, hit, _ := Remember(ctx, c, NamespaceArticles, time.Minute, load, "slug", "hello")

	if hit || first == second {
		t.Errorf("Expected a fresh load after bump, got first=%d second=%d hit=%v", first, second, hit)
	}

	// other namespaces are untouched
	_, _, _ = Remember(ctx, c, NamespaceModules, time.Minute, load, "HOME")
	require.NoError(t, c.Bump(ctx, NamespaceArticles))
	_, hit, _ = Remember(ctx, c, NamespaceModules, time.Minute, load, "HOME")
	if !hit {
		t.Error("Expected modules entry to survive an articles bump")
	}
}

func TestRemember_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	load := func() (string, error) { return "v", nil }
	_, _, _ = Remember(ctx, c, NamespaceModules, 30*time.Second, load, "k")

	now = now.Add(31 * time.Second)
	_, hit, _ := Remember(ctx, c, NamespaceModules, 30*time.Second, load, "k")
	if hit {
		t.Error("Expected entry to expire after TTL")
	}
}

func TestRemember_LoadErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	boom := errors.New("boom")

	_, _, err := Remember(ctx, c, NamespaceModules, time.Minute, func() (int, error) { return 0, boom }, "k")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected load error, got %v", err)
	}
	_, hit, err := Remember(ctx, c, NamespaceModules, time.Minute, func() (int, error) { return 1, nil }, "k")
	require.NoError(t, err)
	if hit {
		t.Error("Expected failed load not to be cached")
	}
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	loads := 0
	for i := 0; i < 2; i++ {
		_, hit, err := Remember(ctx, Nop{}, NamespaceModules, time.Minute, func() (int, error) { loads++; return 1, nil }, "k")
		require.NoError(t, err)
		require.False(t, hit)
	}
	if loads != 2 {
		t.Errorf("Expected every read to load, got %d", loads)
	}
}
