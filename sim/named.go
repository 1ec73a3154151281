// Package sim implements the discrete-event two-phase simulation kernel:
// the unit registry, the clock-rise/clock-fall barrier, and the small set
// of cross-cutting interfaces (Named, Hookable) that every unit and
// interconnect in the rest of the module builds on.
package sim

// Named is implemented by anything with a stable, human-readable name —
// units, ports, and interconnect endpoints all expose one so telemetry and
// panics can identify what they're talking about.
type Named interface {
	Name() string
}

// nameMustBeUnique panics if name has already been registered. Unit names
// are used as map keys throughout telemetry and must not collide.
func nameMustBeUnique(seen map[string]bool, name string) {
	if seen[name] {
		panic("sim: duplicate unit name " + name)
	}
	seen[name] = true
}
