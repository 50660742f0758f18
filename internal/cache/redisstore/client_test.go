package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestSetGetDel_ConsumesOnce(t *testing.T) {
	rc, _ := newMini(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rc.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, found, err := rc.GetDel(ctx, "k1")
	if err != nil || !found || string(got) != "v1" {
		t.Fatalf("GetDel=%q found=%v err=%v", got, found, err)
	}

	_, found, err = rc.GetDel(ctx, "k1")
	if err != nil {
		t.Fatalf("second GetDel: %v", err)
	}
	if found {
		t.Fatal("key survived GetDel")
	}
}

func TestSet_TTLExpires(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	if err := rc.Set(ctx, "k", []byte("v"), 2*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := mr.TTL("k"); ttl != 2*time.Second {
		t.Fatalf("ttl=%v want 2s", ttl)
	}
	mr.FastForward(3 * time.Second)

	if _, found, _ := rc.GetDel(ctx, "k"); found {
		t.Fatal("expired key still found")
	}
}

func TestContextCanceled_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatal("expected error on Set with canceled context")
	}
	if _, _, err := rc.GetDel(ctx, "k"); err == nil {
		t.Fatal("expected error on GetDel with canceled context")
	}
	if err := rc.Del(ctx, "k"); err == nil {
		t.Fatal("expected error on Del with canceled context")
	}
}

func TestNew_FailsWithoutServer(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := New(ctx, addr, WithDialTimeout(100*time.Millisecond)); err == nil {
		t.Fatal("expected ping failure")
	}
	if _, err := New(ctx, ""); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestNew_AppliesOptions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rc, err := New(context.Background(), mr.Addr(),
		WithPoolSize(3),
		WithDialTimeout(300*time.Millisecond),
		WithReadTimeout(200*time.Millisecond),
		WithWriteTimeout(100*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	o := rc.rdb.Options()
	if o.PoolSize != 3 || o.DialTimeout != 300*time.Millisecond ||
		o.ReadTimeout != 200*time.Millisecond || o.WriteTimeout != 100*time.Millisecond {
		t.Fatalf("options not applied: pool=%d dial=%v read=%v write=%v",
			o.PoolSize, o.DialTimeout, o.ReadTimeout, o.WriteTimeout)
	}
}
