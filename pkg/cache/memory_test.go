package cache

import (
	"fmt"
	"sync"
	"testing"
)

type vectorEntry struct {
	Session string
	Hash    string
	Vector  []float32
}

func entryKey(e vectorEntry) string { return e.Session + ":" + e.Hash }

func TestMemoryCache_Basic(t *testing.T) {
	c := NewMemoryCache[string, vectorEntry]()

	e := vectorEntry{Session: "s1", Hash: "h1", Vector: []float32{1, 2}}
	c.Set(entryKey(e), e)

	got, ok := c.Get("s1:h1")
	if !ok || got.Hash != "h1" {
		t.Errorf("Get(s1:h1) = %v, %v; want h1, true", got, ok)
	}
	if !c.Contains("s1:h1") {
		t.Error("Contains(s1:h1) = false, want true")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	c.Del("s1:h1")
	if _, ok := c.Get("s1:h1"); ok {
		t.Error("Get found item after Del")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestMemoryCache_IndexBySession(t *testing.T) {
	c := NewMemoryCache[string, vectorEntry]()
	c.AddIndex("session", func(e vectorEntry) any { return e.Session })

	for _, e := range []vectorEntry{
		{Session: "s1", Hash: "a"},
		{Session: "s1", Hash: "b"},
		{Session: "s2", Hash: "a"},
	} {
		c.Set(entryKey(e), e)
	}

	n, err := c.CountByIndex("session", "s1")
	if err != nil || n != 2 {
		t.Fatalf("CountByIndex(s1) = %d, %v; want 2, nil", n, err)
	}

	found, err := c.Find("session", "s2")
	if err != nil || len(found) != 1 {
		t.Fatalf("Find(s2) = %v, %v; want 1 item", found, err)
	}

	removed, err := c.DeleteByIndex("session", "s1")
	if err != nil || removed != 2 {
		t.Fatalf("DeleteByIndex(s1) = %d, %v; want 2, nil", removed, err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after invalidation, want 1", c.Len())
	}
	if c.Contains("s1:a") {
		t.Error("s1 entry survived DeleteByIndex")
	}
	if !c.Contains("s2:a") {
		t.Error("s2 entry removed by s1 invalidation")
	}
}

func TestMemoryCache_UpdateMovesIndex(t *testing.T) {
	c := NewMemoryCache[string, vectorEntry]()
	c.AddIndex("session", func(e vectorEntry) any { return e.Session })

	c.Set("k", vectorEntry{Session: "old"})
	c.Set("k", vectorEntry{Session: "new"})

	if n, _ := c.CountByIndex("session", "old"); n != 0 {
		t.Errorf("stale index entry: CountByIndex(old) = %d", n)
	}
	if n, _ := c.CountByIndex("session", "new"); n != 1 {
		t.Errorf("CountByIndex(new) = %d, want 1", n)
	}
}

func TestMemoryCache_UnknownIndex(t *testing.T) {
	c := NewMemoryCache[string, vectorEntry]()

	if _, err := c.Find("missing", "x"); err != ErrIndexNotFound {
		t.Errorf("Find err = %v, want ErrIndexNotFound", err)
	}
	if _, err := c.DeleteByIndex("missing", "x"); err != ErrIndexNotFound {
		t.Errorf("DeleteByIndex err = %v, want ErrIndexNotFound", err)
	}
}

func TestMemoryCache_ClearKeepsIndexes(t *testing.T) {
	c := NewMemoryCache[string, vectorEntry]()
	c.AddIndex("session", func(e vectorEntry) any { return e.Session })
	c.Set("a", vectorEntry{Session: "s"})
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear", c.Len())
	}
	c.Set("b", vectorEntry{Session: "s"})
	if n, err := c.CountByIndex("session", "s"); err != nil || n != 1 {
		t.Errorf("CountByIndex after Clear = %d, %v", n, err)
	}
}

func TestMemoryCache_Concurrency(t *testing.T) {
	c := NewMemoryCache[string, vectorEntry]()
	c.AddIndex("session", func(e vectorEntry) any { return e.Session })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := vectorEntry{Session: fmt.Sprintf("s%d", i%2), Hash: fmt.Sprintf("h%d", i)}
			c.Set(entryKey(e), e)
			_, _ = c.Find("session", e.Session)
		}(i)
	}
	wg.Wait()

	if c.Len() != 50 {
		t.Errorf("Len() = %d, want 50", c.Len())
	}
}
