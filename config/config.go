// Package config holds the start-of-run settings of the harness.
//
// Settings come from a preset for the backend variant, then from BACKENDTB_*
// environment variables (optionally loaded from a .env file), then from
// command line flags.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/sarchlab/backendtb/backend"
	"github.com/sarchlab/backendtb/program"
	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/trace"
	"github.com/sarchlab/backendtb/uop"
)

// Errors reported while building a configuration.
var (
	ErrInvalidConfig = errors.New("config: invalid configuration")
	ErrModeMismatch  = errors.New("config: program does not match the backend mode")
)

// EnvPrefix starts the name of every environment variable read by ApplyEnv.
const EnvPrefix = "BACKENDTB_"

// Config is everything a run needs to know before it starts.
type Config struct {
	Mode          uop.Mode
	ResetWidth    int
	SettleLatency int
	Budget        int
	QueueDepth    int
	Program       string

	TracePath    string
	TraceFormats []trace.Format
	Timescale    timing.Timescale

	Strict      bool
	Quiet       bool
	RecordDB    string
	MonitorPort int
}

// Preset returns the settings of a backend variant. The scalar-port backend
// needs a 4 step reset and halts well within 100 steps. The queue-slot
// backend needs a 10 step reset and gets 1000 steps.
func Preset(mode uop.Mode) Config {
	c := Config{
		Mode:          mode,
		ResetWidth:    4,
		SettleLatency: backend.SettleLatency,
		Budget:        100,
		QueueDepth:    backend.DefaultQueueDepth,
		Program:       "add-halt",
		TracePath:     trace.DefaultVCDFile,
		TraceFormats:  []trace.Format{trace.FormatVCD},
		Timescale:     timing.DefaultTimescale,
		MonitorPort:   -1,
	}

	if mode == uop.ModeQueueSlot {
		c.ResetWidth = 10
		c.Budget = 1000
		c.Program = "queue-add-halt"
	}

	return c
}

// Default returns the scalar-port preset.
func Default() Config {
	return Preset(uop.ModeScalarPort)
}

// LoadDotEnv loads environment variables from the given files. Without
// arguments it loads .env from the working directory if the file exists.
// Variables already set in the environment are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}

	return errors.Wrap(godotenv.Load(paths...), "loading .env")
}

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// ModeFromEnv returns the mode named by BACKENDTB_MODE, or fallback.
func ModeFromEnv(lookup LookupFunc, fallback uop.Mode) (uop.Mode, error) {
	v, ok := lookup(EnvPrefix + "MODE")
	if !ok || v == "" {
		return fallback, nil
	}

	return uop.ParseMode(v)
}

// ApplyEnv overrides settings with BACKENDTB_* variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	ints := map[string]*int{
		"RESET_WIDTH":  &c.ResetWidth,
		"SETTLE":       &c.SettleLatency,
		"BUDGET":       &c.Budget,
		"QUEUE_DEPTH":  &c.QueueDepth,
		"MONITOR_PORT": &c.MonitorPort,
	}

	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%s%s=%q", EnvPrefix, key, v)
		}

		*dst = n
	}

	strs := map[string]*string{
		"PROGRAM":   &c.Program,
		"TRACE":     &c.TracePath,
		"RECORD_DB": &c.RecordDB,
	}

	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "TRACE_FORMAT"); ok && v != "" {
		formats, err := trace.ParseFormats(v)
		if err != nil {
			return err
		}

		c.TraceFormats = formats
	}

	if v, ok := lookup(EnvPrefix + "TIMESCALE"); ok && v != "" {
		ts, err := timing.ParseTimescale(v)
		if err != nil {
			return err
		}

		c.Timescale = ts
	}

	for key, dst := range map[string]*bool{"STRICT": &c.Strict, "QUIET": &c.Quiet} {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}

		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%s%s=%q", EnvPrefix, key, v)
		}

		*dst = b
	}

	return nil
}

// Validate rejects settings the harness cannot run with.
func (c Config) Validate() error {
	switch {
	case c.ResetWidth < 1:
		return errors.Wrapf(ErrInvalidConfig, "reset width %d", c.ResetWidth)
	case c.SettleLatency < 2 || c.SettleLatency%2 != 0:
		return errors.Wrapf(ErrInvalidConfig,
			"settle latency %d is not a whole number of clock periods", c.SettleLatency)
	case c.SettleLatency != backend.SettleLatency:
		return errors.Wrapf(ErrInvalidConfig,
			"settle latency %d would issue each entry %d times, the backend needs %d",
			c.SettleLatency, c.SettleLatency/2, backend.SettleLatency)
	case c.Budget < 0:
		return errors.Wrapf(ErrInvalidConfig, "budget %d", c.Budget)
	case c.QueueDepth < uop.NumQueueSlots:
		return errors.Wrapf(ErrInvalidConfig,
			"queue depth %d is below %d slots", c.QueueDepth, uop.NumQueueSlots)
	case c.Program == "":
		return errors.Wrap(ErrInvalidConfig, "no program")
	case len(c.TraceFormats) == 0:
		return errors.Wrap(ErrInvalidConfig, "no trace format")
	}

	return c.Timescale.Validate()
}

// LoadProgram resolves Program as a built-in name or a YAML file and checks
// that it targets the configured mode.
func (c Config) LoadProgram() (*program.Program, error) {
	p, err := program.Builtin(c.Program)
	if err != nil {
		p, err = program.Load(c.Program)
		if err != nil {
			return nil, err
		}
	}

	if p.Mode != c.Mode {
		return nil, errors.Wrapf(ErrModeMismatch,
			"program %s is %s, backend is %s", p.Name, p.Mode, c.Mode)
	}

	return p, nil
}
