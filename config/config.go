// Package config describes a CXL expander platform and loads it from YAML
// files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/workload"
)

// Run targets.
const (
	RunOnHost = "host"
	RunOnNMP  = "nmp"
)

// ErrInvalidRunTarget is returned when run_on names neither the host nor
// the near-memory processor.
var ErrInvalidRunTarget = errors.New("invalid run target")

// ErrInvalidConfig wraps every other validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full platform description.
type Config struct {
	RunOn      string           `yaml:"run_on"`
	Controller ControllerConfig `yaml:"controller"`
	Media      MediaConfig      `yaml:"media"`
	Host       HostConfig       `yaml:"host"`
	Workload   workload.Pattern `yaml:"workload"`
}

// ControllerConfig configures the CXL memory controller.
type ControllerConfig struct {
	Freq         Frequency `yaml:"freq"`
	ProtoProcLat Latency   `yaml:"proto_proc_lat"`
	ReqSize      int       `yaml:"req_size"`
	RspSize      int       `yaml:"rsp_size"`
	MemStart     uint64    `yaml:"cxl_mem_start"`
	MemSize      Size      `yaml:"cxl_mem_range"`
	BARStart     uint64    `yaml:"bar_start"`
	BARSize      Size      `yaml:"bar_size"`
	PIOLatency   Latency   `yaml:"pio_latency"`
	EnableNMP    bool      `yaml:"enable_nmp"`
	NMPBinary    string    `yaml:"nmp_binary"`
	NMPStartAddr uint64    `yaml:"nmp_start_addr"`
}

// MediaConfig configures the memory behind the controller.
type MediaConfig struct {
	Freq        Frequency `yaml:"freq"`
	Latency     Latency   `yaml:"latency"`
	MaxInflight int       `yaml:"max_inflight"`
}

// HostConfig configures the agent that issues requests through the host
// port. The near-memory core runs at the same frequency.
type HostConfig struct {
	Freq   Frequency `yaml:"freq"`
	Window int       `yaml:"window"`
	// StackPointer is handed to the near-memory processor on start.
	StackPointer uint64 `yaml:"stack_pointer"`
}

// Default returns the configuration of a 2 GiB expander mapped at 4 GiB,
// running the pointer chase from the host.
func Default() *Config {
	return &Config{
		RunOn: RunOnHost,
		Controller: ControllerConfig{
			Freq:         Frequency(1 * sim.GHz),
			ProtoProcLat: Latency(15 * sim.Ns),
			ReqSize:      48,
			RspSize:      48,
			MemStart:     4 << 30,
			MemSize:      2 << 30,
			BARStart:     2 << 30,
			BARSize:      2 << 30,
			PIOLatency:   Latency(30 * sim.Ns),
			NMPStartAddr: 0x100000000,
		},
		Media: MediaConfig{
			Freq:        Frequency(1 * sim.GHz),
			Latency:     Latency(50 * sim.Ns),
			MaxInflight: 64,
		},
		Host: HostConfig{
			Freq:   Frequency(1 * sim.GHz),
			Window: 1,
		},
		Workload: workload.DefaultPointerChase(),
	}
}

// Load builds a configuration from the defaults, the YAML file at path (if
// path is not empty), and the CXLSIM_* environment variables. The env files
// are loaded first; without any, a .env file in the working directory is
// used if it exists. Variables already set in the environment win over
// those from files.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}

		files = []string{".env"}
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}

	logrus.Debugf("loaded env files %v", files)

	return nil
}

// Validate reports the first problem found in the configuration.
func (c *Config) Validate() error {
	switch c.RunOn {
	case RunOnHost:
	case RunOnNMP:
		if !c.Controller.EnableNMP {
			return fmt.Errorf("%w: run_on is %q but the NMP is disabled",
				ErrInvalidRunTarget, c.RunOn)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRunTarget, c.RunOn)
	}

	if err := c.Controller.validate(); err != nil {
		return err
	}

	if err := c.Media.validate(); err != nil {
		return err
	}

	if c.Host.Freq == 0 {
		return fmt.Errorf("%w: host frequency must be positive",
			ErrInvalidConfig)
	}

	if c.Host.Window <= 0 {
		return fmt.Errorf("%w: host window must be positive",
			ErrInvalidConfig)
	}

	if err := c.Workload.Validate(); err != nil {
		return err
	}

	return nil
}

func (c ControllerConfig) validate() error {
	if c.Freq == 0 {
		return fmt.Errorf("%w: controller frequency must be positive",
			ErrInvalidConfig)
	}

	if c.ReqSize < 0 || c.RspSize < 0 {
		return fmt.Errorf("%w: queue sizes cannot be negative",
			ErrInvalidConfig)
	}

	if c.ReqSize == 0 {
		logrus.Warn("controller req_size is 0, every request will be refused")
	}

	if c.MemSize == 0 {
		return fmt.Errorf("%w: cxl_mem_range must not be empty",
			ErrInvalidConfig)
	}

	memEnd := c.MemStart + uint64(c.MemSize)
	barEnd := c.BARStart + uint64(c.BARSize)
	if c.BARSize > 0 && c.BARStart < memEnd && c.MemStart < barEnd {
		return fmt.Errorf("%w: BAR overlaps the memory range",
			ErrInvalidConfig)
	}

	return nil
}

func (c MediaConfig) validate() error {
	if c.Freq == 0 {
		return fmt.Errorf("%w: media frequency must be positive",
			ErrInvalidConfig)
	}

	if c.MaxInflight <= 0 {
		return fmt.Errorf("%w: media max_inflight must be positive",
			ErrInvalidConfig)
	}

	return nil
}

// YAML returns the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	return data, nil
}
