package config

import (
	"testing"

	"github.com/sarchlab/arches/dram"
	"github.com/sarchlab/arches/rtcore"
	"github.com/sarchlab/arches/stream"
)

func testDRAMConfig() dram.Config {
	return dram.Config{
		Channels: 1, Ranks: 1, Banks: 4, Rows: 1024, Columns: 256,
		BlockSize: 64, ClockDiv: 1,
		Timing: dram.Timing{
			ActivateToRead: 2, ReadToPrecharge: 2, WriteRecovery: 2,
			RowCycle: 8, Precharge: 2, FourActivateWindow: 8,
			ColumnAccess: 2, BurstLength: 1, RefreshInterval: 1000,
			RefreshCycle: 4, ReadWriteLookaside: 1,
		},
	}
}

// TestBuilderAssemblesWiredSystem exercises spec.md §4.10's domain-stack
// wiring: a SystemConfig with every optional stage enabled produces a
// System whose units are all non-nil and share one kernel.
func TestBuilderAssemblesWiredSystem(t *testing.T) {
	cfg := SystemConfig{
		DRAM: testDRAMConfig(),
		Cache: CacheConfig{
			Kind: "nonblocking", Sets: 64, Ways: 4, HitLatency: 2,
			MSHRCapacity: 8, InDepth: 4,
			OffsetMask: 0x3f, SetMask: 0xfc0,
		},
		Direct: rtcore.Config{
			NumSlots: 4, BoxLatency: 2, BoxII: 1, TriLatency: 2, TriII: 1,
		},
		Stream: rtcore.StreamingConfig{
			NumSlots: 4, BoxLatency: 2, BoxII: 1, TriLatency: 2, TriII: 1,
		},
		Sched: stream.Config{
			NumChannels: 2, RowStride: 64, MaxActiveSegment: 4,
		},
		Scene: stream.SceneBufferConfig{
			NumSlots: 2, TreeletStride: 0x10000, BlockSize: 64, LeadingBlocks: 4,
		},
		Regfile:          RegfileConfig{NumTiles: 2, NumTPPerTM: 4, BlockSize: 16},
		HitArrayCapacity: 256,
	}

	sys := NewBuilder(cfg).Build("test")

	if sys.Kernel == nil || sys.DRAM == nil || sys.Cache == nil || sys.Scene == nil || sys.Sched == nil {
		t.Fatalf("core units missing: %+v", sys)
	}
	if sys.Direct == nil || sys.Stream == nil {
		t.Fatalf("RT cores missing: %+v", sys)
	}
	if sys.Regs == nil || len(sys.Tiles) != 2 {
		t.Fatalf("regfile/tile schedulers missing: regs=%v tiles=%d", sys.Regs, len(sys.Tiles))
	}
	if sys.Hits == nil {
		t.Fatalf("hit array missing")
	}
	if sys.Kernel.NumUnits() == 0 {
		t.Fatalf("no units registered with the kernel")
	}

	units := sys.Units()
	wantMin := 1 /*DRAM*/ + 1 /*Cache*/ + 1 /*Scene*/ + 1 /*Sched*/ + 1 /*Regs*/ + 2 /*Tiles*/ + 1 /*Direct*/ + 1 /*Stream*/
	if len(units) != wantMin {
		t.Fatalf("Units() returned %d units, want %d", len(units), wantMin)
	}
	for _, u := range units {
		if u == nil || u.Name() == "" {
			t.Fatalf("Units() returned an unnamed or nil unit: %+v", u)
		}
	}
}

// TestBuilderOmitsUnconfiguredStages checks that a bare-minimum config
// (no cache, no RT cores, no regfile) builds without panicking and
// leaves those fields nil rather than zero-valued structs.
func TestBuilderOmitsUnconfiguredStages(t *testing.T) {
	cfg := SystemConfig{
		DRAM:  testDRAMConfig(),
		Sched: stream.Config{NumChannels: 1, RowStride: 64, MaxActiveSegment: 4},
		Scene: stream.SceneBufferConfig{NumSlots: 1, TreeletStride: 0x10000, BlockSize: 64, LeadingBlocks: 1},
	}

	sys := NewBuilder(cfg).Build("bare")

	if sys.Cache != nil {
		t.Errorf("expected no cache stage")
	}
	if sys.Direct != nil || sys.Stream != nil {
		t.Errorf("expected no RT cores")
	}
	if sys.Regs != nil || sys.Tiles != nil {
		t.Errorf("expected no regfile")
	}
}
