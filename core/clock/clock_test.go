package clock

import (
	"testing"
	"time"
)

func TestSyncFromHeader(t *testing.T) {
	local := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewWithSource(func() time.Time { return local })
	if c.Synchronized() {
		t.Fatal("new clock must not be synchronized")
	}
	ok, err := c.SyncFromHeader("Tue, 15 Oct 2024 10:30:00 GMT")
	if err != nil || !ok {
		t.Fatalf("sync: %v %v", ok, err)
	}
	want := time.Date(2024, 10, 15, 10, 30, 0, 0, time.UTC)
	if got := c.Now(); !got.Equal(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	ok, err = c.SyncFromHeader("Wed, 16 Oct 2024 10:30:00 GMT")
	if err != nil || ok {
		t.Fatalf("second sync must be ignored: %v %v", ok, err)
	}
	if got := c.Now(); !got.Equal(want) {
		t.Fatalf("offset changed: %v", got)
	}
}

func TestSyncFromHeaderInvalid(t *testing.T) {
	c := New()
	if _, err := c.SyncFromHeader("yesterday"); err == nil {
		t.Fatal("expected parse error")
	}
	if c.Synchronized() {
		t.Fatal("failed sync must not mark the clock")
	}
	c.MarkSynchronized()
	if !c.Synchronized() {
		t.Fatal("expected synchronized")
	}
}
