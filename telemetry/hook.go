package telemetry

import "github.com/sarchlab/arches/sim"

// Attach registers a Counters-backed hook on u, so every one of u's
// ClockFall edges is tallied without u importing this package at all
// (the hook mechanism spec.md §4.1's **[EXPANSION]** calls for,
// grounded on core/port.go's HookPos/HookableBase pair).
//
// The hook only sees that u completed a clock edge, not whether that
// edge did useful work or stalled on back-pressure. RecordActive and
// RecordStall take that finer attribution from callers that track it;
// no unit in this module calls them, so Attach is what gives a run a
// tick count per unit without any code in the unit itself.
func Attach(u sim.HookableUnit, counters *Counters) {
	u.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
		if ctx.Pos != sim.HookPosFall {
			return
		}
		counters.RecordActive(u.Name())
	}))
}

// AttachAll calls Attach on every unit in units that is Hookable,
// silently skipping the rest. config.System.Units() is the usual
// source for units.
func AttachAll(units []sim.Unit, counters *Counters) {
	for _, u := range units {
		if hu, ok := u.(sim.HookableUnit); ok {
			Attach(hu, counters)
		}
	}
}
