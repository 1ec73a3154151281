package sim

// Unit is the capability interface every clocked component in the
// simulator implements. It replaces the teacher's virtual-dispatch
// UnitBase/UnitMemoryBase hierarchy (spec.md §9, Design Notes) with a
// single small interface; units that need more specific behavior type
// their own concrete type and satisfy Unit to register with a Kernel.
//
// Rise may only read input interconnects; Fall may only write output
// interconnects. The Kernel enforces the *ordering* of this invariant
// (every unit's Rise runs before any unit's Fall, every tick); it cannot
// enforce the read/write split itself, since that is a property of how a
// Unit implementation touches its interconnects.
type Unit interface {
	Named

	// Reset restores the unit to its power-on state. Called once before
	// the first tick and never again — units are immutable after that,
	// per spec.md §3.
	Reset()

	// ClockRise evaluates combinational reads against the previous
	// tick's stable register state.
	ClockRise()

	// ClockFall commits writes that become the next tick's stable state.
	ClockFall()
}

// Activity lets a Unit tell the Kernel it has work in flight, so the
// Kernel's termination check does not fire while any pipeline still
// holds payload (spec.md §4.1, Termination).
//
// A Unit calls Activate the first tick it transitions from idle to
// busy, and Deactivate the tick it returns to idle. Calls must balance;
// an unbalanced Deactivate will underflow the Kernel's counter and panic.
type Activity interface {
	Activate()
	Deactivate()
}

// UnitBase is embeddable by concrete units that want Named, a stable
// Kernel-assigned id, and Hookable for free.
type UnitBase struct {
	HookableBase

	id   int
	name string
}

// InitUnitBase sets the fields a Kernel fills in at registration time.
// Concrete units call this from their constructor after NewKernel's
// RegisterUnit has assigned an id.
func (b *UnitBase) InitUnitBase(id int, name string) {
	b.id = id
	b.name = name
}

// ID returns the monotonically increasing id assigned at registration.
func (b *UnitBase) ID() int { return b.id }

// Name returns the unit's registered name.
func (b *UnitBase) Name() string { return b.name }
