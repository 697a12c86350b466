package cache

import (
	"strings"
	"testing"
	"time"
)

func TestClaimKey_NormalizesText(t *testing.T) {
	a := ClaimKey("Inflation  reached 5.4 percent")
	b := ClaimKey("inflation reached 5.4 PERCENT")
	if a != b {
		t.Errorf("normalized keys differ: %q vs %q", a, b)
	}
	if ClaimKey("a different claim") == a {
		t.Error("distinct claims share a key")
	}
	if !strings.HasPrefix(a, "faktgate:v1:") {
		t.Errorf("key = %q, missing version prefix", a)
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("unexpected hit")
	}
	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found := c.Get("k")
	if !found || string(val) != "v" {
		t.Errorf("Get = %q, %v", val, found)
	}
	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("value survived delete")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Set(ClaimKey("claim"), []byte(`{"verdict":"true"}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found := c.Get(ClaimKey("claim"))
	if !found || string(val) != `{"verdict":"true"}` {
		t.Errorf("Get = %q, %v", val, found)
	}

	// Expired entries are evicted on read
	if err := c.Set("expired", []byte("x"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, found := c.Get("expired"); found {
		t.Error("expired entry returned")
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)

	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Drop the memory layer; disk must still serve and repopulate it
	c.memory.Clear()
	val, found := c.Get("k")
	if !found || string(val) != "v" {
		t.Fatalf("Get after memory clear = %q, %v", val, found)
	}
	if _, found := c.memory.Get("k"); !found {
		t.Error("disk hit not promoted to memory")
	}
}
