package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	RedisHost string
	RedisPort int

	// TickPeriod is the base rate of the supervisory step.
	TickPeriod time.Duration

	GPIOChip    string
	PullupLine  int
	HealthyLine int

	// FrameList is a Redis list of raw telemetry frames. Empty disables
	// the framed input source; inputs then come from the autopilot hash.
	FrameList string

	// EscalateUnit is restarted via systemd when pullup latches. Empty
	// disables escalation.
	EscalateUnit string

	DryRun bool

	// File is an optional YAML config file; values from it fill in any
	// setting not given explicitly on the command line.
	File string
}

// FileConfig mirrors the YAML config file.
type FileConfig struct {
	Redis struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"redis"`
	TickPeriod string `yaml:"tick_period"`
	GPIO       struct {
		Chip        string `yaml:"chip"`
		PullupLine  *int   `yaml:"pullup_line"`
		HealthyLine *int   `yaml:"healthy_line"`
	} `yaml:"gpio"`
	FrameList    string `yaml:"frame_list"`
	EscalateUnit string `yaml:"escalate_unit"`
	DryRun       *bool  `yaml:"dry_run"`
}

func New() *Config {
	return &Config{
		RedisHost:   "localhost",
		RedisPort:   6379,
		TickPeriod:  200 * time.Millisecond,
		GPIOChip:    "",
		PullupLine:  50,
		HealthyLine: 51,
		FrameList:   "",
		DryRun:      false,
	}
}

func (c *Config) Parse() error {
	flag.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis host")
	flag.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")

	flag.DurationVar(&c.TickPeriod, "tick-period", c.TickPeriod,
		"Supervisory step period (model base rate)")

	flag.StringVar(&c.GPIOChip, "gpio-chip", c.GPIOChip,
		"GPIO chip for discrete outputs (empty disables GPIO)")
	flag.IntVar(&c.PullupLine, "pullup-line", c.PullupLine,
		"GPIO line offset for the pullup alert output")
	flag.IntVar(&c.HealthyLine, "healthy-line", c.HealthyLine,
		"GPIO line offset for the healthy output")

	flag.StringVar(&c.FrameList, "frame-list", c.FrameList,
		"Redis list carrying raw telemetry frames (empty uses the autopilot hash)")

	flag.StringVar(&c.EscalateUnit, "escalate-unit", c.EscalateUnit,
		"systemd unit to restart when pullup latches (empty disables)")

	flag.BoolVar(&c.DryRun, "dry-run", c.DryRun,
		"Dry run (don't drive GPIO or restart units)")

	flag.StringVar(&c.File, "config", c.File, "Path to YAML config file")

	flag.Parse()

	if c.File == "" {
		return nil
	}

	fc, err := ReadFile(c.File)
	if err != nil {
		return err
	}

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	return c.ApplyFile(fc, explicit)
}

// ReadFile parses a YAML config file.
func ReadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &fc, nil
}

// ApplyFile fills in file values for settings not given on the command
// line. Flags win over the file; the file wins over built-in defaults.
func (c *Config) ApplyFile(fc *FileConfig, explicit map[string]bool) error {
	if fc.Redis.Host != "" && !explicit["redis-host"] {
		c.RedisHost = fc.Redis.Host
	}
	if fc.Redis.Port != 0 && !explicit["redis-port"] {
		c.RedisPort = fc.Redis.Port
	}
	if fc.TickPeriod != "" && !explicit["tick-period"] {
		d, err := time.ParseDuration(fc.TickPeriod)
		if err != nil {
			return fmt.Errorf("invalid tick_period %q: %w", fc.TickPeriod, err)
		}
		c.TickPeriod = d
	}
	if fc.GPIO.Chip != "" && !explicit["gpio-chip"] {
		c.GPIOChip = fc.GPIO.Chip
	}
	if fc.GPIO.PullupLine != nil && !explicit["pullup-line"] {
		c.PullupLine = *fc.GPIO.PullupLine
	}
	if fc.GPIO.HealthyLine != nil && !explicit["healthy-line"] {
		c.HealthyLine = *fc.GPIO.HealthyLine
	}
	if fc.FrameList != "" && !explicit["frame-list"] {
		c.FrameList = fc.FrameList
	}
	if fc.EscalateUnit != "" && !explicit["escalate-unit"] {
		c.EscalateUnit = fc.EscalateUnit
	}
	if fc.DryRun != nil && !explicit["dry-run"] {
		c.DryRun = *fc.DryRun
	}
	return nil
}
