package telemetry

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sarchlab/arches/sim"
)

type fakeUnit struct {
	sim.UnitBase
	fallsLeft int
	kernel    *sim.Kernel
}

func (u *fakeUnit) Reset()     {}
func (u *fakeUnit) ClockRise() {}
func (u *fakeUnit) ClockFall() {
	u.fallsLeft--
	if u.fallsLeft == 0 {
		u.kernel.Deactivate()
	}
}

func TestAttachRecordsOneActiveTickPerFall(t *testing.T) {
	k := sim.NewKernel()
	u := &fakeUnit{kernel: k, fallsLeft: 4}
	u.InitUnitBase(0, "fake")
	k.RegisterUnit(u)

	c := NewCounters()
	Attach(u, c)

	k.Activate()
	k.Execute(0, nil)

	snap := c.Snapshot()
	if snap.Units["fake"].ActiveTicks != 4 {
		t.Fatalf("active ticks = %d, want 4", snap.Units["fake"].ActiveTicks)
	}
}

func TestAttachAllSkipsNonHookableUnits(t *testing.T) {
	c := NewCounters()
	AttachAll(nil, c) // must not panic on an empty unit list
	if len(c.Snapshot().Units) != 0 {
		t.Fatalf("expected no units recorded")
	}
}

func TestCountersUtilization(t *testing.T) {
	c := NewCounters()
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	c.RecordActive("dram")
	c.RecordActive("dram")
	c.RecordActive("dram")
	c.RecordStall("dram")
	c.RecordBytes("dram", 128)

	snap := c.Snapshot()
	if snap.Ticks != 10 {
		t.Fatalf("ticks = %d, want 10", snap.Ticks)
	}
	if got := snap.Utilization("dram"); got != 0.3 {
		t.Fatalf("utilization = %v, want 0.3", got)
	}
	if snap.Units["dram"].Bytes != 128 {
		t.Fatalf("bytes = %d, want 128", snap.Units["dram"].Bytes)
	}
}

func TestReportRendersUnits(t *testing.T) {
	c := NewCounters()
	c.Tick()
	c.RecordActive("scheduler")
	out := Report("test-run", c.Snapshot())

	if !strings.Contains(out, "test-run") {
		t.Errorf("report missing run id: %s", out)
	}
	if !strings.Contains(out, "Scheduler") {
		t.Errorf("report missing unit row (title-cased): %s", out)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	c := NewCounters()
	c.Tick()
	c.RecordActive("dram")
	c.RecordBytes("dram", 64)

	if err := store.Save("run-1", c.Snapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Saving again with the same run id must not error (INSERT OR
	// REPLACE on the (run_id, unit) primary key).
	if err := store.Save("run-1", c.Snapshot()); err != nil {
		t.Fatalf("second Save: %v", err)
	}
}

func TestNewWithoutStorePath(t *testing.T) {
	tel, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tel.RunID == "" {
		t.Fatalf("expected a non-empty run id")
	}
	if err := tel.Flush(); err != nil {
		t.Fatalf("Flush with no store should be a no-op: %v", err)
	}
}
