// Package dram implements the address-mapped DRAM channel model of
// spec.md §4.4: address decode, per-bank state machine, command
// scheduler, refresh, and the completion heap that hands fills back to
// the return network.
package dram

import (
	"os"

	"gopkg.in/yaml.v3"
)

// AddressMapping selects one of the two mappings spec.md §4.4 allows.
type AddressMapping int

const (
	// ColumnLowInterleaved puts channel-select bits above the column
	// bits but below the row bits.
	ColumnLowInterleaved AddressMapping = iota
	// ChannelAboveOffset puts channel-select bits immediately above the
	// byte offset, below everything else.
	ChannelAboveOffset
)

// Timing is the per-command timing table referenced by spec.md §6 as
// "external YAML/text" and by §4.4's named constants. Units are DRAM
// clock cycles.
type Timing struct {
	ActivateToRead     int `yaml:"activate_to_read"`     // tRCD
	ReadToPrecharge    int `yaml:"read_to_precharge"`    // tRTP
	WriteRecovery      int `yaml:"write_recovery"`       // tWR
	RowCycle           int `yaml:"row_cycle"`            // tRC: activate -> next activate, same bank
	Precharge          int `yaml:"precharge"`            // tRP
	FourActivateWindow int `yaml:"four_activate_window"` // tFAW
	ColumnAccess       int `yaml:"column_access"`        // tCL
	BurstLength        int `yaml:"burst_length"`         // tBURST
	RefreshInterval    int `yaml:"refresh_interval"`     // tREFI: window length
	RefreshCycle       int `yaml:"refresh_cycle"`        // tRFC: refresh command duration
	PowerDownEntry     int `yaml:"power_down_entry"`
	PowerDownExit      int `yaml:"power_down_exit"`
	ReadWriteLookaside int `yaml:"read_write_lookaside"` // fixed latency for a read served from a queued write
}

// Config is the full configuration the DRAM controller is built from:
// channel/rank/bank/row/column geometry, block size, the address
// mapping choice, and the timing table. Loaded from YAML per
// spec.md §6 ("DRAM configuration: external YAML/text").
type Config struct {
	Channels  int            `yaml:"channels"`
	Ranks     int            `yaml:"ranks"`
	Banks     int            `yaml:"banks"`
	Rows      int            `yaml:"rows"`
	Columns   int            `yaml:"columns"`
	BlockSize int            `yaml:"block_size"`
	Mapping   AddressMapping `yaml:"mapping"`
	ClockDiv  int            `yaml:"clock_div"` // simulator ticks per DRAM clock
	Timing    Timing         `yaml:"timing"`
}

// LoadConfig reads and parses a Config from a YAML file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
