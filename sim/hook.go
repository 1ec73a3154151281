package sim

import "sync"

// HookPos names a point in a unit's lifecycle where a Hook may be invoked.
// Grounded on core/port.go's HookPos/HookableBase pair in the teacher.
type HookPos struct {
	Name string
}

var (
	// HookPosRise marks a unit's clock-rise evaluation.
	HookPosRise = &HookPos{Name: "ClockRise"}
	// HookPosFall marks a unit's clock-fall evaluation.
	HookPosFall = &HookPos{Name: "ClockFall"}
)

// HookableUnit is a Unit that also accepts Hooks. UnitBase embeds
// HookableBase, so every concrete unit built on UnitBase satisfies this
// for free; the Kernel fires a hook around each clock edge without
// the unit importing anything beyond sim itself.
type HookableUnit interface {
	Unit
	Hookable
}

// HookCtx carries the information passed to a Hook at invocation time.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
}

// Hook observes events in a Hookable's lifecycle. Telemetry counters and
// trace loggers are implemented as Hooks so units never import telemetry
// directly.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx HookCtx)

// Func invokes f.
func (f HookFunc) Func(ctx HookCtx) { f(ctx) }

// Hookable is implemented by anything that accepts Hooks.
type Hookable interface {
	AcceptHook(h Hook)
	InvokeHook(ctx HookCtx)
	NumHooks() int
}

// HookableBase is embedded by units and interconnects that want Hookable
// for free.
type HookableBase struct {
	mu    sync.Mutex
	hooks []Hook
}

// AcceptHook registers h to be invoked on every subsequent InvokeHook call.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// InvokeHook calls every registered hook with ctx.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	h.mu.Lock()
	hooks := h.hooks
	h.mu.Unlock()

	for _, hook := range hooks {
		hook.Func(ctx)
	}
}

// NumHooks reports how many hooks are currently registered.
func (h *HookableBase) NumHooks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}
