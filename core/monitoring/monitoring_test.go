package monitoring

import (
	"errors"
	"testing"
	"time"
)

type recordMonitor struct {
	errs    []error
	tags    []map[string]string
	flushed int
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *recordMonitor) Flush(time.Duration) { r.flushed++ }

func TestReportTagsComponent(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(NopMonitor{})

	Report("watchdog", errors.New("stuck"))
	CaptureException(nil, nil)
	if len(mon.errs) != 1 {
		t.Fatalf("expected one capture, got %d", len(mon.errs))
	}
	if mon.tags[0]["component"] != "watchdog" {
		t.Fatalf("tags not set: %v", mon.tags[0])
	}
}

func TestRecoverCapturesAndRepanics(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(NopMonitor{})

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("expected re-panic with boom, got %v", r)
			}
		}()
		func() {
			defer Recover()
			panic("boom")
		}()
	}()
	if len(mon.errs) != 1 || mon.errs[0].Error() != "panic: boom" {
		t.Fatalf("panic not captured: %v", mon.errs)
	}
	if mon.flushed != 1 {
		t.Fatalf("expected flush")
	}
}
