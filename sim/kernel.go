package sim

import (
	"sync"
	"sync/atomic"
)

// Kernel is the unit registry and two-phase clock. It is the "sole
// subject" piece of spec.md §4.1: register_unit, new_unit_group, and
// execute(delta, cb).
//
// Kernel owns no notion of simulated frequency or wall time; a tick is
// simply one rise/fall pair. Units that need a notion of "cycles per
// second" (the DRAM controller's clock-ratio, for instance) divide ticks
// themselves.
type Kernel struct {
	mu     sync.Mutex
	names  map[string]bool
	units  []Unit
	groups [][]Unit // contiguous slices of units, in registration order

	tick     uint64
	activity int64 // atomic: "units executing" counter
}

// NewKernel creates an empty Kernel with one open (not yet closed) unit
// group. Units registered before the first NewUnitGroup call all belong
// to group 0.
func NewKernel() *Kernel {
	k := &Kernel{
		names:  make(map[string]bool),
		groups: [][]Unit{nil},
	}
	return k
}

// RegisterUnit appends u to the current unit group and assigns it a
// monotonically increasing id. Units are immutable after registration
// (spec.md §3); RegisterUnit must not be called once Execute has begun.
func (k *Kernel) RegisterUnit(u Unit) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	nameMustBeUnique(k.names, u.Name())

	id := len(k.units)
	k.units = append(k.units, u)
	last := len(k.groups) - 1
	k.groups[last] = append(k.groups[last], u)

	return id
}

// NewUnitGroup closes the current unit group and opens a new one.
// Subsequent RegisterUnit calls join the new group. Groups are the unit
// of parallel evaluation: units within a group are always evaluated in
// registration order on one goroutine; distinct groups MAY run on
// distinct goroutines within a phase.
func (k *Kernel) NewUnitGroup() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.groups = append(k.groups, nil)
}

// Activate increments the units-executing counter. Safe to call from any
// goroutine.
func (k *Kernel) Activate() {
	atomic.AddInt64(&k.activity, 1)
}

// Deactivate decrements the units-executing counter. Panics on
// underflow: an unbalanced Deactivate call is a unit-implementation bug,
// not a runnable edge case.
func (k *Kernel) Deactivate() {
	if atomic.AddInt64(&k.activity, -1) < 0 {
		panic("sim: Kernel activity counter underflow")
	}
}

// Tick returns the current tick number; valid to call from a callback
// passed to Execute.
func (k *Kernel) Tick() uint64 { return k.tick }

// Activity returns the current units-executing counter. A value of zero
// means every transaction injected so far has been fully retired.
func (k *Kernel) Activity() int64 { return atomic.LoadInt64(&k.activity) }

// ResetAll calls Reset on every registered unit, exactly once, before
// the first tick. Execute calls this automatically; StepOnce-driven
// tests call it explicitly.
func (k *Kernel) ResetAll() {
	for _, u := range k.units {
		u.Reset()
	}
}

// Execute runs rise/fall pairs until the units-executing counter reaches
// zero, invoking cb every delta ticks (delta == 0 disables the
// callback). Reset is called on every registered unit exactly once,
// before tick 0.
//
// Rise-before-fall ordering is total across the whole unit population;
// intra-group ordering is registration order; inter-group ordering
// within a phase is unspecified, and groups are evaluated concurrently.
func (k *Kernel) Execute(delta uint64, cb func(tick uint64)) {
	k.ResetAll()

	for atomic.LoadInt64(&k.activity) > 0 {
		k.runPhase(func(u Unit) { u.ClockRise(); k.fireHook(u, HookPosRise) })
		k.runPhase(func(u Unit) { u.ClockFall(); k.fireHook(u, HookPosFall) })

		k.tick++

		if delta != 0 && cb != nil && k.tick%delta == 0 {
			cb(k.tick)
		}
	}
}

// runPhase evaluates every unit group's phase function, groups
// concurrently, units within a group sequentially in registration order.
func (k *Kernel) runPhase(phase func(Unit)) {
	var wg sync.WaitGroup
	wg.Add(len(k.groups))

	for _, group := range k.groups {
		group := group
		go func() {
			defer wg.Done()
			for _, u := range group {
				phase(u)
			}
		}()
	}

	wg.Wait()
}

// NumUnits reports how many units are registered.
func (k *Kernel) NumUnits() int { return len(k.units) }

// StepOnce runs exactly one rise/fall pair regardless of the
// units-executing counter, advancing Tick by one. It exists for tests
// and drivers that inject stimulus from outside any registered Unit and
// so can't rely on Execute's termination condition alone. Reset is NOT
// called; callers that need it should call it once before the first
// StepOnce.
func (k *Kernel) StepOnce() {
	k.runPhase(func(u Unit) { u.ClockRise(); k.fireHook(u, HookPosRise) })
	k.runPhase(func(u Unit) { u.ClockFall(); k.fireHook(u, HookPosFall) })
	k.tick++
}

// fireHook invokes u's own hooks (if it is Hookable) with a HookCtx
// naming the unit itself as the Item, so a hook registered once on a
// unit can tell which edge just ran without the Kernel needing a
// separate hook registry of its own.
func (k *Kernel) fireHook(u Unit, pos *HookPos) {
	h, ok := u.(Hookable)
	if !ok || h.NumHooks() == 0 {
		return
	}
	h.InvokeHook(HookCtx{Domain: h, Pos: pos, Item: u})
}
