// Package config defines EngineConfig, the engine's runtime-tunable
// options (spec.md §6), loaded from YAML and optionally hot-reloaded.
//
// Hot reload only ever replaces the mutable EngineConfig value; it never
// touches the phase/barrier registry, which is fixed at compile time
// (spec.md §1 Non-goals: "hot-reload of the phase registry at runtime").
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Timing holds the fixed-simulation pacing parameters (spec.md §6).
type Timing struct {
	// FixedDelta is the nominal fixed-step period (e.g. 16.667ms).
	FixedDelta time.Duration `yaml:"fixed_delta"`
	// MaxAccumulator clamps the fixed-sim accumulator to avoid a
	// "spiral of death" under sustained slow frames.
	MaxAccumulator time.Duration `yaml:"max_accumulator"`
	// MaxSubsteps bounds the number of fixed substeps run per frame.
	MaxSubsteps int `yaml:"max_substeps"`
	// PacingSafetyMargin is subtracted from the pacer's deadline
	// before it sleeps, to leave headroom for the final yield-poll.
	PacingSafetyMargin time.Duration `yaml:"pacing_safety_margin"`
}

// EngineConfig is the engine's recognized configuration surface.
type EngineConfig struct {
	// FrameCount is the number of frames to run before Run returns.
	// Zero means run until Stop is called.
	FrameCount uint `yaml:"frame_count"`
	// TargetFPS paces the frame loop. Zero disables pacing.
	TargetFPS uint   `yaml:"target_fps"`
	Timing    Timing `yaml:"timing"`
}

// Default returns the recommended starting configuration: uncapped frame
// count, 60 fps pacing, a 16.667ms fixed step, a 250ms accumulator clamp,
// at most 8 substeps per frame, and a 2ms pacing safety margin.
func Default() EngineConfig {
	return EngineConfig{
		FrameCount: 0,
		TargetFPS:  60,
		Timing: Timing{
			FixedDelta:         time.Second / 60,
			MaxAccumulator:     250 * time.Millisecond,
			MaxSubsteps:        8,
			PacingSafetyMargin: 2 * time.Millisecond,
		},
	}
}

// Load reads an EngineConfig from a YAML file parsed over Default: every
// field the file does not set, FrameCount and TargetFPS included, keeps
// its Default value, while a value the file sets explicitly (0 included,
// which is meaningful for FrameCount/TargetFPS, spec.md §6) replaces it.
func Load(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Timing.FixedDelta < 0 {
		return EngineConfig{}, fmt.Errorf("config: timing.fixed_delta must not be negative")
	}
	if cfg.Timing.MaxSubsteps < 0 {
		return EngineConfig{}, fmt.Errorf("config: timing.max_substeps must not be negative")
	}
	return cfg, nil
}

// Store holds the live EngineConfig and notifies subscribers when it
// changes, whether from an explicit Set or a watched file reload.
type Store struct {
	mu   sync.RWMutex
	cfg  EngineConfig
	subs []chan EngineConfig
}

// NewStore wraps an initial EngineConfig in a Store.
func NewStore(initial EngineConfig) *Store {
	return &Store{cfg: initial}
}

// Get returns the current EngineConfig.
func (s *Store) Get() EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the current EngineConfig and notifies subscribers.
// It never blocks on a slow subscriber: each subscriber channel is
// buffered and a full channel drops the update rather than stalling
// the frame loop.
func (s *Store) Set(cfg EngineConfig) {
	s.mu.Lock()
	s.cfg = cfg
	subs := append([]chan EngineConfig(nil), s.subs...)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- cfg:
		default:
		}
	}
}

// Subscribe returns a channel receiving subsequent Sets. Its buffer
// holds one update; a Set that finds it full is not delivered.
func (s *Store) Subscribe() <-chan EngineConfig {
	ch := make(chan EngineConfig, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}
