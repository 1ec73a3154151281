// Package telemetry accumulates the per-cycle utilisation, stall,
// traffic and energy counters spec.md §2's component table and §8's
// testable properties call for, and renders, persists, and serves them
// the way the teacher's console/monitoring tooling does (spec.md §2
// ambient stack **[EXPANSION]**).
package telemetry

import "sync"

// UnitCounters is one unit's running tally for a simulation.
type UnitCounters struct {
	ActiveTicks uint64
	StallTicks  uint64
	Bytes       uint64
	EnergyPJ    float64
}

// Counters accumulates per-unit tallies plus the overall tick count,
// safe for concurrent use across the kernel's unit groups
// (sim.Kernel.runPhase evaluates groups on separate goroutines).
type Counters struct {
	mu    sync.Mutex
	Ticks uint64
	units map[string]*UnitCounters
}

// NewCounters builds an empty Counters.
func NewCounters() *Counters {
	return &Counters{units: make(map[string]*UnitCounters)}
}

func (c *Counters) unit(name string) *UnitCounters {
	u, ok := c.units[name]
	if !ok {
		u = &UnitCounters{}
		c.units[name] = u
	}
	return u
}

// Tick advances the overall cycle count; call once per kernel tick.
func (c *Counters) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Ticks++
}

// RecordActive marks unit as having done useful work this tick.
func (c *Counters) RecordActive(unit string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unit(unit).ActiveTicks++
}

// RecordStall marks unit as having stalled (back-pressured or waiting
// on a miss) this tick.
func (c *Counters) RecordStall(unit string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unit(unit).StallTicks++
}

// RecordBytes adds n bytes to unit's traffic tally (DRAM/cache fills,
// bucket reads/writes, treelet prefetches).
func (c *Counters) RecordBytes(unit string, n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unit(unit).Bytes += n
}

// RecordEnergy adds picojoules to unit's energy tally.
func (c *Counters) RecordEnergy(unit string, picoJoules float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unit(unit).EnergyPJ += picoJoules
}

// Snapshot is a point-in-time, lock-free copy of Counters suitable for
// rendering or serializing.
type Snapshot struct {
	Ticks uint64                  `json:"ticks"`
	Units map[string]UnitCounters `json:"units"`
}

// Snapshot copies the current state out from under the lock.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Ticks: c.Ticks, Units: make(map[string]UnitCounters, len(c.units))}
	for name, u := range c.units {
		s.Units[name] = *u
	}
	return s
}

// Utilization returns u's active-tick fraction of the total ticks
// elapsed so far, the headline number in spec.md §8's utilisation
// properties.
func (s Snapshot) Utilization(unit string) float64 {
	if s.Ticks == 0 {
		return 0
	}
	return float64(s.Units[unit].ActiveTicks) / float64(s.Ticks)
}
