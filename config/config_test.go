/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
kind: shared
capacity: 1073741824
memory_pool_initial_capacity: 4096
spill_enabled: true
test_spill_pct: 10
spill_backend: local
spill_dir: /tmp/spill
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Kind != "shared" || cfg.Capacity != 1073741824 || !cfg.SpillEnabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.TestSpillPct != 10 || cfg.SpillBackend != "local" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"kind":"shared","capacity":2048,"test_spill_pct":50}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Kind != "shared" || cfg.Capacity != 2048 || cfg.TestSpillPct != 50 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigUnknownExtensionFallsBackToJSON(t *testing.T) {
	path := writeFile(t, "cfg.conf", `{"kind":"noop"}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Kind != "noop" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigRejectsOutOfRangeTestSpillPct(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"test_spill_pct":150}`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for test_spill_pct > 100")
	}
}

func TestLoadConfigRejectsOutOfRangeGrowthPct(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"spillable_reservation_growth_pct":-1}`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for a negative spillable_reservation_growth_pct")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestEffectiveCapacityZeroMeansUnlimited(t *testing.T) {
	cfg := Config{Capacity: 0}
	if got := cfg.EffectiveCapacity(); got != math.MaxInt64 {
		t.Fatalf("expected MaxInt64, got %d", got)
	}
	cfg.Capacity = 42
	if got := cfg.EffectiveCapacity(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

// TestConfigRoundTripsYAML and TestConfigRoundTripsJSON exercise SPEC_FULL
// §8's testable property 9: LoadConfig applied to a marshaled Config
// reproduces the same Config.
func TestConfigRoundTripsYAML(t *testing.T) {
	want := Config{
		Kind:                          "shared",
		Capacity:                      1 << 30,
		MemoryPoolInitialCapacity:     4096,
		MemoryPoolTransferCapacity:    8192,
		SpillEnabled:                  true,
		OrderBySpillEnabled:           true,
		OrderBySpillMemoryThreshold:   1 << 20,
		SpillableReservationGrowthPct: 25,
		TestSpillPct:                  0,
		SpillBackend:                  "s3",
		SpillDir:                      "bucket/prefix",
	}
	data, err := yaml.Marshal(want)
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}
	path := writeFile(t, "roundtrip.yaml", string(data))
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != want {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestConfigRoundTripsJSON(t *testing.T) {
	want := Config{
		Kind:     "noop",
		Capacity: 99,
	}
	data, err := jsoniter.Marshal(want)
	if err != nil {
		t.Fatalf("jsoniter.Marshal: %v", err)
	}
	path := writeFile(t, "roundtrip.json", string(data))
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != want {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, want)
	}
}
