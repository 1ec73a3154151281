package dram

// refreshesPerWindow is the fixed auto-refresh count spec.md §4.4
// requires per refresh window, per rank.
const refreshesPerWindow = 8

// refreshState tracks one rank's progress through its current refresh
// window. Deadlines are spaced evenly across the window, and the
// controller force-issues each refresh once its deadline is one cycle
// away. If rows of the rank are still open then, the controller first
// precharges them and holds back other commands, so that refresh issues
// later than its deadline by the time the precharge takes.
type refreshState struct {
	windowStart uint64
	issued      int
}

// deadline returns the cycle by which the (issued+1)-th refresh of the
// current window must have been issued.
func (r *refreshState) deadline(windowLen int) uint64 {
	slot := uint64(windowLen) / refreshesPerWindow
	return r.windowStart + uint64(r.issued+1)*slot
}

// due reports whether the next refresh must be force-issued now to
// still make its deadline.
func (r *refreshState) due(now uint64, windowLen int) bool {
	if r.issued >= refreshesPerWindow {
		return false
	}
	return now+1 >= r.deadline(windowLen)
}

// issue records that a refresh was just issued, rolling over to a fresh
// window once all eight have been sent.
func (r *refreshState) issue(windowLen int) {
	r.issued++
	if r.issued >= refreshesPerWindow {
		r.windowStart += uint64(windowLen)
		r.issued = 0
	}
}
