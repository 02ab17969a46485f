// Package config loads and validates the recognized Config options
// (spec.md §6) from YAML or JSON, the way the teacher's cluster config
// accepts either format rather than committing to one.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cascadedb/memarb/cmn/nlog"
)

// Config mirrors spec.md §6's recognized options.
type Config struct {
	Kind string `yaml:"kind" json:"kind"`

	Capacity                     int64 `yaml:"capacity" json:"capacity"`
	MemoryPoolInitialCapacity    int64 `yaml:"memory_pool_initial_capacity" json:"memory_pool_initial_capacity"`
	MemoryPoolTransferCapacity   int64 `yaml:"memory_pool_transfer_capacity" json:"memory_pool_transfer_capacity"`
	SpillEnabled                 bool  `yaml:"spill_enabled" json:"spill_enabled"`
	OrderBySpillEnabled          bool  `yaml:"order_by_spill_enabled" json:"order_by_spill_enabled"`
	OrderBySpillMemoryThreshold  int64 `yaml:"order_by_spill_memory_threshold" json:"order_by_spill_memory_threshold"`
	SpillableReservationGrowthPct int  `yaml:"spillable_reservation_growth_pct" json:"spillable_reservation_growth_pct"`
	TestSpillPct                 int   `yaml:"test_spill_pct" json:"test_spill_pct"`

	SpillBackend string `yaml:"spill_backend" json:"spill_backend"`
	SpillDir     string `yaml:"spill_dir" json:"spill_dir"`
}

// EffectiveCapacity returns Capacity, with the spec §6 "0 = unlimited"
// convention resolved to math.MaxInt64.
func (c Config) EffectiveCapacity() int64 {
	if c.Capacity <= 0 {
		return math.MaxInt64
	}
	return c.Capacity
}

// Validate checks the bounds SPEC_FULL §6 assigns to the percentage
// options; everything else is either unconstrained or defaulted.
func (c Config) Validate() error {
	if c.TestSpillPct < 0 || c.TestSpillPct > 100 {
		return errors.Errorf("config: test_spill_pct must be in [0,100], got %d", c.TestSpillPct)
	}
	if c.SpillableReservationGrowthPct < 0 || c.SpillableReservationGrowthPct > 1000 {
		return errors.Errorf("config: spillable_reservation_growth_pct must be in [0,1000], got %d", c.SpillableReservationGrowthPct)
	}
	return nil
}

// LoadConfig reads path and unmarshals it by extension: ".yaml"/".yml"
// via gopkg.in/yaml.v3, anything else (".json" included) via
// json-iterator/go, matching the teacher's practice of accepting either
// serialization for process configuration.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = jsoniter.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	logEnvOverrides()
	return cfg, nil
}

// logEnvOverrides logs GOMEMLIMIT/GOMAXPROCS if set, per SPEC_FULL §4.8:
// these are reported, never silently folded into Capacity.
func logEnvOverrides() {
	if v, ok := os.LookupEnv("GOMEMLIMIT"); ok {
		nlog.Infof("config: GOMEMLIMIT=%s (capacity must be set explicitly to enforce a ceiling)", v)
	}
	if v, ok := os.LookupEnv("GOMAXPROCS"); ok {
		nlog.Infof("config: GOMAXPROCS=%s", v)
	}
}
