package sim_test

import (
	"testing"

	"github.com/sarchlab/arches/sim"
)

// countingUnit activates for a fixed number of ticks, recording the
// order in which Rise/Fall are invoked relative to a shared log, then
// deactivates.
type countingUnit struct {
	sim.UnitBase
	kernel    *sim.Kernel
	ticksLeft int
	log       *[]string
}

func (u *countingUnit) Reset() {}

func (u *countingUnit) ClockRise() {
	*u.log = append(*u.log, u.Name()+".rise")
}

func (u *countingUnit) ClockFall() {
	*u.log = append(*u.log, u.Name()+".fall")
	u.ticksLeft--
	if u.ticksLeft == 0 {
		u.kernel.Deactivate()
	}
}

func TestKernelRiseBeforeFall(t *testing.T) {
	k := sim.NewKernel()
	var log []string

	u1 := &countingUnit{kernel: k, ticksLeft: 2, log: &log}
	u1.InitUnitBase(0, "u1")
	u2 := &countingUnit{kernel: k, ticksLeft: 2, log: &log}
	u2.InitUnitBase(1, "u2")

	k.RegisterUnit(u1)
	k.RegisterUnit(u2)

	// One Activate per unit: each unit calls Deactivate once.
	k.Activate()
	k.Activate()

	k.Execute(0, nil)

	if len(log) != 8 {
		t.Fatalf("expected 8 log entries (2 units x 2 ticks x rise+fall), got %d: %v", len(log), log)
	}

	// Within each tick, every rise must be logged before any fall.
	for tick := 0; tick < 2; tick++ {
		entries := log[tick*4 : tick*4+4]
		fallSeen := false
		for _, e := range entries {
			if e == "u1.fall" || e == "u2.fall" {
				fallSeen = true
			}
			if fallSeen && (e == "u1.rise" || e == "u2.rise") {
				t.Fatalf("rise observed after fall within a tick: %v", entries)
			}
		}
	}
}

func TestKernelTerminatesWhenQuiescent(t *testing.T) {
	k := sim.NewKernel()
	var log []string

	u := &countingUnit{kernel: k, ticksLeft: 5, log: &log}
	u.InitUnitBase(0, "solo")
	k.RegisterUnit(u)

	k.Activate()
	k.Execute(0, nil)

	if k.Tick() != 5 {
		t.Fatalf("expected kernel to run exactly 5 ticks, ran %d", k.Tick())
	}
}

func TestHookFiresOnRiseAndFall(t *testing.T) {
	k := sim.NewKernel()
	var log []string

	u := &countingUnit{kernel: k, ticksLeft: 3, log: &log}
	u.InitUnitBase(0, "hooked")
	k.RegisterUnit(u)

	var edges []string
	u.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
		edges = append(edges, ctx.Pos.Name)
	}))

	k.Activate()
	k.Execute(0, nil)

	if len(edges) != 6 {
		t.Fatalf("expected 6 hook firings (a rise and a fall in each of 3 ticks), got %d: %v", len(edges), edges)
	}
	for i, e := range edges {
		want := sim.HookPosRise.Name
		if i%2 == 1 {
			want = sim.HookPosFall.Name
		}
		if e != want {
			t.Fatalf("expected hook firing %d to be %q, got %q", i, want, e)
		}
	}
}

func TestUnhookedUnitNeverInvokesHooks(t *testing.T) {
	k := sim.NewKernel()
	var log []string

	u := &countingUnit{kernel: k, ticksLeft: 2, log: &log}
	u.InitUnitBase(0, "bare")
	k.RegisterUnit(u)

	if u.NumHooks() != 0 {
		t.Fatalf("expected no hooks registered by default")
	}

	k.Activate()
	k.Execute(0, nil) // must not panic absent any registered hook
}

func TestDeactivateUnderflowPanics(t *testing.T) {
	k := sim.NewKernel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unbalanced Deactivate")
		}
	}()
	k.Deactivate()
}
