// Package config assembles a whole simulation from a YAML-loaded
// SystemConfig, mirroring the teacher's config.DeviceBuilder chaining
// idiom (spec.md §2 ambient stack) but wiring DRAM, caches, RT cores
// and the stream scheduler instead of a CGRA tile mesh.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/arches/cache"
	"github.com/sarchlab/arches/dram"
	"github.com/sarchlab/arches/regfile"
	"github.com/sarchlab/arches/rtcore"
	"github.com/sarchlab/arches/sim"
	"github.com/sarchlab/arches/stream"
)

// CacheConfig configures one cache bank sitting in front of DRAM.
type CacheConfig struct {
	Kind         string `yaml:"kind"` // "blocking" or "nonblocking"
	Sets         int    `yaml:"sets"`
	Ways         int    `yaml:"ways"`
	HitLatency   int    `yaml:"hit_latency"`
	MSHRCapacity int    `yaml:"mshr_capacity"` // nonblocking only
	InDepth      int    `yaml:"in_depth"`
	WriteMiss    string `yaml:"write_miss"` // "allocate" or "through"

	TagMask    uint64 `yaml:"tag_mask"`
	SetMask    uint64 `yaml:"set_mask"`
	BankMask   uint64 `yaml:"bank_mask"`
	OffsetMask uint64 `yaml:"offset_mask"`
}

func (c CacheConfig) addressMap() cache.AddressMap {
	return cache.AddressMap{TagMask: c.TagMask, SetMask: c.SetMask, BankMask: c.BankMask, OffsetMask: c.OffsetMask}
}

func (c CacheConfig) writeMissPolicy() cache.WriteMissPolicy {
	if c.WriteMiss == "through" {
		return cache.WriteThrough
	}
	return cache.WriteAllocate
}

// RegfileConfig configures the atomic regfile and its tile schedulers.
type RegfileConfig struct {
	NumTiles   int    `yaml:"num_tiles"`
	NumTPPerTM int    `yaml:"num_tp_per_tm"`
	BlockSize  uint32 `yaml:"block_size"`
}

// SystemConfig is the single YAML document a simulation is built from
// (spec.md §2 ambient stack, §6 "DRAM configuration: external
// YAML/text" generalized to the whole machine).
type SystemConfig struct {
	DRAM    dram.Config              `yaml:"dram"`
	Cache   CacheConfig              `yaml:"cache"`
	Direct  rtcore.Config            `yaml:"direct_core"`
	Stream  rtcore.StreamingConfig   `yaml:"streaming_core"`
	Sched   stream.Config            `yaml:"scheduler"`
	Scene   stream.SceneBufferConfig `yaml:"scene_buffer"`
	Regfile RegfileConfig            `yaml:"regfile"`

	HitArrayCapacity int `yaml:"hit_array_capacity"`
}

// LoadSystemConfig reads and parses a SystemConfig from a YAML file.
func LoadSystemConfig(path string) (*SystemConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg SystemConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// System is everything a Builder assembles: the kernel and every unit
// wired into it, returned so a driver can inject ray work and read
// telemetry off the live units.
type System struct {
	Kernel *sim.Kernel

	DRAM   *dram.Controller
	Cache  cache.Bank // nil if the config has no cache stage
	Scene  *stream.SceneBuffer
	Sched  *stream.Scheduler
	Regs   *regfile.AtomicRegfile
	Tiles  []*regfile.TileScheduler
	Direct *rtcore.DirectCore
	Stream *rtcore.StreamingCore
	Hits   *rtcore.GlobalHitArray
}

// Units returns every unit Build wired into the kernel, in the same
// order Build constructed them, skipping stages the config left
// unconfigured. A driver hands this to telemetry.AttachAll to get a
// tick count for every unit without each unit importing telemetry.
func (s *System) Units() []sim.Unit {
	var us []sim.Unit
	if s.DRAM != nil {
		us = append(us, s.DRAM)
	}
	if s.Cache != nil {
		if u, ok := s.Cache.(sim.Unit); ok {
			us = append(us, u)
		}
	}
	if s.Scene != nil {
		us = append(us, s.Scene)
	}
	if s.Sched != nil {
		us = append(us, s.Sched)
	}
	if s.Regs != nil {
		us = append(us, s.Regs)
	}
	for _, t := range s.Tiles {
		us = append(us, t)
	}
	if s.Direct != nil {
		us = append(us, s.Direct)
	}
	if s.Stream != nil {
		us = append(us, s.Stream)
	}
	return us
}

// Builder assembles a System from a SystemConfig, following the
// teacher's WithX(...) Builder chaining idiom
// (config/config.go's DeviceBuilder).
type Builder struct {
	cfg SystemConfig
}

// NewBuilder starts a Builder from a base SystemConfig (e.g. loaded via
// LoadSystemConfig), which every WithX call refines.
func NewBuilder(cfg SystemConfig) Builder {
	return Builder{cfg: cfg}
}

func (b Builder) WithDRAM(cfg dram.Config) Builder {
	b.cfg.DRAM = cfg
	return b
}

func (b Builder) WithCache(cfg CacheConfig) Builder {
	b.cfg.Cache = cfg
	return b
}

func (b Builder) WithDirectCore(cfg rtcore.Config) Builder {
	b.cfg.Direct = cfg
	return b
}

func (b Builder) WithStreamingCore(cfg rtcore.StreamingConfig) Builder {
	b.cfg.Stream = cfg
	return b
}

func (b Builder) WithScheduler(cfg stream.Config) Builder {
	b.cfg.Sched = cfg
	return b
}

func (b Builder) WithSceneBuffer(cfg stream.SceneBufferConfig) Builder {
	b.cfg.Scene = cfg
	return b
}

func (b Builder) WithRegfile(cfg RegfileConfig) Builder {
	b.cfg.Regfile = cfg
	return b
}

// Build assembles and wires every unit named by the config, registering
// them all with a fresh kernel under name.
func (b Builder) Build(name string) *System {
	kernel := sim.NewKernel()

	dramCtrl := dram.NewController(kernel, name+".DRAM", &b.cfg.DRAM, 4)

	var rtMem cache.Higher = dramCtrl
	var bank cache.Bank
	if b.cfg.Cache.Sets > 0 {
		bank = b.buildCache(kernel, name+".Cache", dramCtrl)
		rtMem = bank
	}

	scene := stream.NewSceneBuffer(kernel, name+".SceneBuffer", b.cfg.Scene, dramCtrl, 4)
	sched := stream.NewScheduler(kernel, name+".Scheduler", b.cfg.Sched, dramCtrl, scene)

	sys := &System{
		Kernel: kernel,
		DRAM:   dramCtrl,
		Cache:  bank,
		Scene:  scene,
		Sched:  sched,
	}

	if b.cfg.Regfile.NumTiles > 0 {
		sys.Regs = regfile.NewAtomicRegfile(kernel, name+".Regfile", b.cfg.Regfile.NumTiles)
		for t := 0; t < b.cfg.Regfile.NumTiles; t++ {
			tile := regfile.NewTileScheduler(
				kernel,
				fmt.Sprintf("%s.TileScheduler[%d]", name, t),
				b.cfg.Regfile.NumTPPerTM,
				sys.Regs,
				t,
				b.cfg.Regfile.BlockSize,
			)
			sys.Tiles = append(sys.Tiles, tile)
		}
	}

	if b.cfg.Direct.NumSlots > 0 {
		sys.Direct = rtcore.NewDirectCore(kernel, name+".DirectCore", b.cfg.Direct, rtMem, 4)
	}

	if b.cfg.Stream.NumSlots > 0 {
		var hits rtcore.HitArray
		if b.cfg.HitArrayCapacity > 0 {
			sys.Hits = rtcore.NewGlobalHitArray(b.cfg.HitArrayCapacity)
			hits = sys.Hits
		}
		sys.Stream = rtcore.NewStreamingCore(kernel, name+".StreamingCore", b.cfg.Stream, rtMem, sched, hits)
	}

	return sys
}

func (b Builder) buildCache(kernel *sim.Kernel, name string, higher cache.Higher) cache.Bank {
	c := b.cfg.Cache
	if c.Kind == "nonblocking" {
		return cache.NewNonBlockingBank(kernel, name, 0, c.addressMap(), c.Sets, c.Ways, c.HitLatency, c.MSHRCapacity, c.InDepth, c.writeMissPolicy(), higher)
	}
	return cache.NewBlockingBank(kernel, name, 0, c.addressMap(), c.Sets, c.Ways, c.HitLatency, c.InDepth, c.writeMissPolicy(), higher)
}
