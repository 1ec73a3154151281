package dram

import (
	"github.com/sarchlab/arches/interconnect"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/transaction"
)

// channelState is one DRAM channel's scheduling state: its bank
// timers, its admitted-request queue, its per-rank refresh state, and
// its completion heap (spec.md §4.4).
type channelState struct {
	banks   [][]*bankTimers // [rank][bank]
	queue   []transaction.Request
	refresh []refreshState // one per rank

	// writeBuffer models the read/write merge rule of spec.md §4.4: a
	// read that matches a queued write returns that write's data at a
	// fixed look-aside latency without touching DRAM.
	writeBuffer map[uint64]transaction.Request

	completions completionHeap
}

// Controller is the DRAM channel model unit. It presents the same
// uniform request/return contract as a cache bank (it satisfies
// cache.Higher structurally, without importing the cache package) and
// internally decodes each request's channel/rank/bank/row/column via
// Config.Decode.
type Controller struct {
	sim.UnitBase

	kernel *sim.Kernel
	cfg    *Config

	channels []*channelState

	in  *interconnect.FIFOArray[transaction.Request]
	out *interconnect.RegisterArray[transaction.Return]

	egress []transaction.Return // cross-channel FIFO feeding out, one per tick

	divCounter int
	dramTick   uint64
}

// NewController builds a Controller from cfg, registering it with
// kernel.
func NewController(kernel *sim.Kernel, name string, cfg *Config, inDepth int) *Controller {
	c := &Controller{
		kernel:   kernel,
		cfg:      cfg,
		channels: make([]*channelState, cfg.Channels),
		in:       interconnect.NewFIFOArray[transaction.Request](1, inDepth),
		out:      interconnect.NewRegisterArray[transaction.Return](1),
	}

	for ch := range c.channels {
		cs := &channelState{
			banks:       make([][]*bankTimers, cfg.Ranks),
			refresh:     make([]refreshState, cfg.Ranks),
			writeBuffer: make(map[uint64]transaction.Request),
		}
		for r := range cs.banks {
			cs.banks[r] = make([]*bankTimers, cfg.Banks)
			for b := range cs.banks[r] {
				cs.banks[r][b] = newBankTimers()
			}
		}
		c.channels[ch] = cs
	}

	id := kernel.RegisterUnit(c)
	c.InitUnitBase(id, name)
	return c
}

func (c *Controller) Reset() {
	c.dramTick = 0
	c.divCounter = 0
}

func (c *Controller) IsRequestWritable() bool { return c.in.IsWriteValid(0) }

func (c *Controller) WriteRequest(req transaction.Request) bool {
	if c.in.Write(0, req) {
		c.kernel.Activate()
		return true
	}
	return false
}

func (c *Controller) IsReturnReadable() bool { return c.out.IsReadValid(0) }

func (c *Controller) PeekReturn() transaction.Return {
	ret, _ := c.out.Peek(0)
	return ret
}

func (c *Controller) ReadReturn() transaction.Return {
	ret, ok := c.out.Read(0)
	if ok {
		c.kernel.Deactivate()
	}
	return ret
}

func (c *Controller) ClockRise() {}

func (c *Controller) ClockFall() {
	clockDiv := c.cfg.ClockDiv
	if clockDiv < 1 {
		clockDiv = 1
	}

	c.divCounter++
	if c.divCounter < clockDiv {
		c.drainEgress()
		return
	}
	c.divCounter = 0
	c.dramTick++

	c.admit()

	for _, ch := range c.channels {
		c.stepChannel(ch)
	}

	c.drainEgress()
}

// admit moves at most one request per tick out of the shared input
// FIFO into its target channel's queue.
func (c *Controller) admit() {
	req, ok := c.in.Peek(0)
	if !ok {
		return
	}
	channel, _, _, _, _ := c.cfg.Decode(req.PAddr)
	ch := c.channels[channel]
	ch.queue = append(ch.queue, req)
	c.in.Read(0)
}

// stepChannel runs one DRAM-clock scheduling step for a single channel:
// refresh coverage, then one issuable command selected row-hit-first,
// then FCFS.
func (c *Controller) stepChannel(ch *channelState) {
	now := c.dramTick
	timing := c.cfg.Timing

	for r := range ch.banks {
		for _, bt := range ch.banks[r] {
			bt.settle(now)
		}
	}

	if c.forceRefresh(ch, now, timing) {
		return
	}

	if len(ch.queue) == 0 {
		return
	}

	idx := c.selectRequest(ch)
	req := ch.queue[idx]

	_, rank, bank, row, _ := c.cfg.Decode(req.PAddr)
	bt := ch.banks[rank][bank]

	lineAddr := req.PAddr &^ uint64(c.cfg.BlockSize-1)

	if req.Type == transaction.ReqLoad || req.Type == transaction.ReqPrefetch {
		if w, ok := ch.writeBuffer[lineAddr]; ok {
			// Read/write merge: serve from the queued write without
			// touching DRAM.
			ret := req.MakeReturn()
			ret.Data = w.Data
			ch.completions.schedule(now+uint64(timing.ReadWriteLookaside), ret)
			c.removeQueued(ch, idx)
			return
		}
	}

	switch {
	case bt.canColumnAccess(now, row):
		c.issueColumnCommand(ch, idx, req, bt, now, timing)
	case bt.state == RowActive:
		if bt.canPrecharge(now) {
			bt.doPrecharge(now, timing)
		}
		// else: waiting out tRTP/tWR before we're allowed to precharge.
	case bt.canActivate(now):
		// tFAW: at most four activations per rolling window across the rank.
		recent := 0
		for _, other := range ch.banks[rank] {
			for _, at := range other.activateHistory {
				if at+uint64(timing.FourActivateWindow) > now {
					recent++
				}
			}
		}
		if recent < 4 {
			bt.doActivate(now, row, timing)
		}
	}
}

func (c *Controller) issueColumnCommand(ch *channelState, idx int, req transaction.Request, bt *bankTimers, now uint64, timing Timing) {
	lineAddr := req.PAddr &^ uint64(c.cfg.BlockSize-1)

	switch req.Type {
	case transaction.ReqStore:
		bt.doWrite(now, timing)
		ch.writeBuffer[lineAddr] = req
		c.removeQueued(ch, idx)
	default:
		bt.doRead(now, timing)
		if w, ok := ch.writeBuffer[lineAddr]; ok && req.Type.IsAtomic() {
			_ = w // an atomic against a just-written line still reads current DRAM timing; data value is a black-box concern.
		}
		ret := req.MakeReturn()
		ch.completions.schedule(now+uint64(timing.ColumnAccess+timing.BurstLength), ret)
		c.removeQueued(ch, idx)
	}
}

// selectRequest implements the reference scheduling policy: row-hit
// first, then FCFS.
func (c *Controller) selectRequest(ch *channelState) int {
	for i, req := range ch.queue {
		_, rank, bank, row, _ := c.cfg.Decode(req.PAddr)
		bt := ch.banks[rank][bank]
		if bt.canColumnAccess(c.dramTick, row) {
			return i
		}
	}
	return 0
}

func (c *Controller) removeQueued(ch *channelState, idx int) {
	ch.queue = append(ch.queue[:idx], ch.queue[idx+1:]...)
}

// forceRefresh checks every rank's refresh deadline and, if one is
// about to close, issues refresh across every bank of that rank, or,
// while rows of the rank are still open, precharges them first. Either
// way it refuses all other scheduling for the channel this tick.
func (c *Controller) forceRefresh(ch *channelState, now uint64, timing Timing) bool {
	forced := false
	for r := range ch.refresh {
		rs := &ch.refresh[r]
		if !rs.due(now, timing.RefreshInterval) {
			continue
		}

		allIdle := true
		for _, bt := range ch.banks[r] {
			if bt.state != Idle {
				allIdle = false
			}
		}
		if !allIdle {
			// Close the rank's open rows; due() keeps firing until every
			// bank is idle and the refresh can issue.
			for _, bt := range ch.banks[r] {
				if bt.state == RowActive && bt.canPrecharge(now) {
					bt.doPrecharge(now, timing)
				}
			}
			forced = true
			continue
		}

		for _, bt := range ch.banks[r] {
			bt.state = Refreshing
			bt.nextActivate = now + uint64(timing.RefreshCycle)
		}
		rs.issue(timing.RefreshInterval)
		forced = true

		sim.Trace("DRAM", "Behavior", "ForceRefresh", "Rank", r, "Tick", now)
	}
	return forced
}

func (c *Controller) drainEgress() {
	for _, ch := range c.channels {
		ready := ch.completions.popReady(c.dramTick)
		c.egress = append(c.egress, ready...)
	}

	if len(c.egress) == 0 {
		return
	}
	if !c.out.IsWriteValid(0) {
		return
	}
	c.out.Write(0, c.egress[0])
	c.egress = c.egress[1:]
}
