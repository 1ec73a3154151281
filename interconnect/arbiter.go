package interconnect

// RoundRobinArbiter grants one winner per Grant call among a fixed set
// of n requesters, advancing its pointer past the winner so the next
// Grant call starts after it. This is the fairness primitive behind
// Cascade, Decascade, Crossbar and CascadedCrossbar: grounded on
// original_source/src/arches-v2/util/arbitration.hpp.
type RoundRobinArbiter struct {
	n    int
	next int
}

// NewRoundRobinArbiter creates an arbiter over n requesters.
func NewRoundRobinArbiter(n int) *RoundRobinArbiter {
	return &RoundRobinArbiter{n: n}
}

// Grant scans requesters starting at the arbiter's pointer and returns
// the index of the first one with requesting[i] == true, wrapping
// around. ok is false if no requester asked. The pointer always
// advances past the scan, whether or not a winner was found, so a
// requester that is silent for a tick doesn't camp at the front of the
// queue once it does ask.
func (a *RoundRobinArbiter) Grant(requesting []bool) (winner int, ok bool) {
	if len(requesting) != a.n {
		panic("interconnect: arbiter requesting slice length mismatch")
	}

	for i := 0; i < a.n; i++ {
		idx := (a.next + i) % a.n
		if requesting[idx] {
			a.next = (idx + 1) % a.n
			return idx, true
		}
	}

	a.next = (a.next + 1) % a.n
	return 0, false
}
