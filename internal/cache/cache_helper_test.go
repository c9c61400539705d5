package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheHelper(client, "test:"), mr
}

func TestCacheHelper_SetGet(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	type payload struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}

	if err := helper.Set(ctx, "item:1", payload{ID: 1, Name: "midterm"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got payload
	if err := helper.Get(ctx, "item:1", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != 1 || got.Name != "midterm" {
		t.Errorf("Get() = %+v, want the stored payload", got)
	}
}

func TestCacheHelper_GetMiss(t *testing.T) {
	helper, _ := newTestHelper(t)

	var got struct{}
	err := helper.Get(context.Background(), "missing", &got)
	if !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get() error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"score": 87}, nil
	}

	var first map[string]int
	if err := helper.CacheOrExecute(ctx, "score:1", &first, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if calls != 1 || first["score"] != 87 {
		t.Fatalf("first call: calls = %d, value = %v", calls, first)
	}

	// The write-behind goroutine must land before the cached read
	deadline := time.Now().Add(time.Second)
	for {
		if exists, _ := helper.Exists(ctx, "score:1"); exists {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cached value never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var second map[string]int
	if err := helper.CacheOrExecute(ctx, "score:1", &second, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() second call error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch ran %d times, want the second read served from cache", calls)
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	for _, key := range []string{"test:1:page:0", "test:1:page:1", "test:2:page:0"} {
		if err := helper.SetString(ctx, key, "x", time.Minute); err != nil {
			t.Fatalf("SetString(%s) error = %v", key, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "test:1*"); err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}

	if exists, _ := helper.Exists(ctx, "test:1:page:0"); exists {
		t.Error("test:1:page:0 survived invalidation")
	}
	if exists, _ := helper.Exists(ctx, "test:2:page:0"); !exists {
		t.Error("test:2:page:0 was dropped by an unrelated invalidation")
	}
}

func TestCacheHelper_NilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "")
	ctx := context.Background()

	if err := helper.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Errorf("Set() with nil client error = %v, want nil", err)
	}

	var got string
	if err := helper.Get(ctx, "k", &got); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get() error = %v, want ErrCacheNotAvailable", err)
	}

	calls := 0
	var out string
	err := helper.CacheOrExecute(ctx, "k", &out, time.Minute, func() (interface{}, error) {
		calls++
		return "fresh", nil
	})
	if err != nil || out != "fresh" || calls != 1 {
		t.Errorf("CacheOrExecute() = %v/%q/%d calls, want nil/fresh/1", err, out, calls)
	}
}
