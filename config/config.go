// Package config holds the replay tunables and loads them from YAML.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	customerrors "call-replay/errors"
)

// Config is the complete set of tunables for one replay run.
type Config struct {
	Replay   Replay   `yaml:"replay"`
	Services Services `yaml:"services"`
	Export   Export   `yaml:"export"`
}

// Replay controls the engine. Durations are seconds of replay time.
type Replay struct {
	MaxWaitSeconds    float64 `yaml:"max_wait_seconds"`
	MaxServiceSeconds float64 `yaml:"max_service_seconds"`
	WindowCapacity    int     `yaml:"window_capacity"`
	MinEventInterval  float64 `yaml:"min_event_interval"`
	ConnectionDelay   float64 `yaml:"connection_delay"`
	LoadCorrection    float64 `yaml:"load_correction"`
	QueueFactorFloor  float64 `yaml:"queue_factor_floor"`
	MaxOtherQueues    int     `yaml:"max_other_queues"`
	// MatchByTuple identifies answered calls in a queue by
	// (arrival, service, worker) instead of the synthetic call id.
	MatchByTuple bool `yaml:"match_by_tuple"`
}

// Services selects the in-scope services and their default handling times.
type Services struct {
	TopN                int                `yaml:"top_n"`
	MinVolume           int                `yaml:"min_volume"`
	DefaultServiceTimes map[string]float64 `yaml:"default_service_times"`
	FallbackServiceTime float64            `yaml:"fallback_service_time"`
}

// Export controls the training/evaluation partition.
type Export struct {
	TrainingSplit float64 `yaml:"training_split"`
	ShuffleSeed   int64   `yaml:"shuffle_seed"`
}

// MaxServices is the largest in-scope service set a replay supports.
const MaxServices = 5

// Default returns the tunables the historical dataset was produced with.
func Default() Config {
	return Config{
		Replay: Replay{
			MaxWaitSeconds:    7200,
			MaxServiceSeconds: 3600,
			WindowCapacity:    200,
			MinEventInterval:  0.001,
			ConnectionDelay:   0.1,
			LoadCorrection:    0.1,
			QueueFactorFloor:  0,
			MaxOtherQueues:    4,
		},
		Services: Services{
			TopN:      MaxServices,
			MinVolume: 200,
			DefaultServiceTimes: map[string]float64{
				"technical": 300,
				"support":   300,
				"sales":     180,
				"billing":   180,
			},
			FallbackServiceTime: 240,
		},
		Export: Export{
			TrainingSplit: 0.8,
			ShuffleSeed:   42,
		},
	}
}

// Load reads a YAML file on top of Default and validates the result.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses YAML from r on top of Default. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", customerrors.ErrInvalidConfig, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures config values are safe.
func (c Config) Validate() error {
	r := c.Replay
	switch {
	case r.MaxWaitSeconds <= 0:
		return invalid("max_wait_seconds must be >0")
	case r.MaxServiceSeconds <= 0:
		return invalid("max_service_seconds must be >0")
	case r.WindowCapacity <= 0:
		return invalid("window_capacity must be >0")
	case r.MinEventInterval <= 0:
		return invalid("min_event_interval must be >0")
	case r.ConnectionDelay < 0:
		return invalid("connection_delay cannot be negative")
	case r.LoadCorrection < 0:
		return invalid("load_correction cannot be negative")
	case r.QueueFactorFloor < 0:
		return invalid("queue_factor_floor cannot be negative")
	case r.MaxOtherQueues < 0 || r.MaxOtherQueues > MaxServices-1:
		return invalid(fmt.Sprintf("max_other_queues must be between 0 and %d", MaxServices-1))
	}

	s := c.Services
	if s.TopN <= 0 || s.TopN > MaxServices {
		return invalid(fmt.Sprintf("top_n must be between 1 and %d", MaxServices))
	}
	if s.MinVolume < 0 {
		return invalid("min_volume cannot be negative")
	}
	if s.FallbackServiceTime <= 0 {
		return invalid("fallback_service_time must be >0")
	}
	for name, v := range s.DefaultServiceTimes {
		if v <= 0 {
			return invalid(fmt.Sprintf("default_service_times[%s] must be >0", name))
		}
	}

	if c.Export.TrainingSplit < 0 || c.Export.TrainingSplit > 1 {
		return invalid("training_split must be between 0 and 1")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", customerrors.ErrInvalidConfig, msg)
}
