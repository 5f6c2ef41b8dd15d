package config

import (
	"fmt"
	"os"
	"strconv"
)

const envPrefix = "CXLSIM_"

type envBinding struct {
	name  string
	apply func(c *Config, v string) error
}

var envBindings = []envBinding{
	{"RUN_ON", func(c *Config, v string) error {
		c.RunOn = v
		return nil
	}},
	{"ENABLE_NMP", func(c *Config, v string) (err error) {
		c.Controller.EnableNMP, err = strconv.ParseBool(v)
		return err
	}},
	{"NMP_BINARY", func(c *Config, v string) error {
		c.Controller.NMPBinary = v
		return nil
	}},
	{"NMP_START_ADDR", func(c *Config, v string) (err error) {
		c.Controller.NMPStartAddr, err = strconv.ParseUint(v, 0, 64)
		return err
	}},
	{"FREQ", func(c *Config, v string) (err error) {
		c.Controller.Freq, err = ParseFrequency(v)
		return err
	}},
	{"PROTO_PROC_LAT", func(c *Config, v string) (err error) {
		c.Controller.ProtoProcLat, err = ParseLatency(v)
		return err
	}},
	{"REQ_SIZE", func(c *Config, v string) (err error) {
		c.Controller.ReqSize, err = strconv.Atoi(v)
		return err
	}},
	{"RSP_SIZE", func(c *Config, v string) (err error) {
		c.Controller.RspSize, err = strconv.Atoi(v)
		return err
	}},
	{"CXL_MEM_RANGE", func(c *Config, v string) (err error) {
		c.Controller.MemSize, err = ParseSize(v)
		return err
	}},
	{"MEDIA_LATENCY", func(c *Config, v string) (err error) {
		c.Media.Latency, err = ParseLatency(v)
		return err
	}},
	{"HOST_WINDOW", func(c *Config, v string) (err error) {
		c.Host.Window, err = strconv.Atoi(v)
		return err
	}},
	{"ACCESSES", func(c *Config, v string) (err error) {
		c.Workload.Accesses, err = strconv.Atoi(v)
		return err
	}},
}

// ApplyEnv overrides fields with the CXLSIM_* environment variables that
// are set.
func (c *Config) ApplyEnv() error {
	for _, b := range envBindings {
		v, ok := os.LookupEnv(envPrefix + b.name)
		if !ok {
			continue
		}

		if err := b.apply(c, v); err != nil {
			return fmt.Errorf("applying %s%s: %w", envPrefix, b.name, err)
		}
	}

	return nil
}
