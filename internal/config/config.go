package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/powermon/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix  = "POWERMON"
	DefaultConfigFile = "/etc/powermon/powermon.toml"
	DefaultLogLevel   = LogLevelInfo

	DefaultDeviceID         = "pi-001"
	DefaultMachineID        = "machine-A"
	DefaultAmplifierGain    = 100.0
	DefaultCTRangeAmps      = 50.0
	DefaultLineVoltage      = 230.0
	DefaultPhases           = 3
	DefaultSampleRateHz     = 50.0
	DefaultAveragingWindow  = 20
	DefaultIdleThreshold    = 0.5
	DefaultFaultThreshold   = 100.0
	DefaultCSVFlushInterval = 10
	DefaultCSVPath          = "/var/lib/powermon/readings.csv"
	DefaultADCVRef          = 3.3
	DefaultADCBits          = 10
	DefaultSPIDevice        = "/dev/spidev0.0"
	DefaultSPISpeedHz       = 1350000

	// SimulateOff disables the simulated ADC source
	SimulateOff = -1

	maxADCBits    = 16
	maxADCChannel = 7
)

// Config is the immutable runtime configuration of the agent
type Config struct {
	DeviceID  string `mapstructure:"device_id"`
	MachineID string `mapstructure:"machine_id"`

	AmplifierGain float64 `mapstructure:"amplifier_gain"`
	CTRangeAmps   float64 `mapstructure:"ct_range_amps"`
	LineVoltage   float64 `mapstructure:"line_voltage"`
	Phases        int     `mapstructure:"phases"`

	SampleRateHz    float64       `mapstructure:"sample_rate_hz"`
	AveragingWindow int           `mapstructure:"averaging_window"`
	WindowPause     time.Duration `mapstructure:"window_pause"`

	IdleThreshold  float64 `mapstructure:"idle_threshold"`
	FaultThreshold float64 `mapstructure:"fault_threshold"`

	CSVPath          string `mapstructure:"csv_path"`
	CSVFlushInterval int    `mapstructure:"csv_flush_interval"`
	MaxRecords       int    `mapstructure:"max_records"`

	ADCChannel int     `mapstructure:"adc_channel"`
	ADCVRef    float64 `mapstructure:"adc_vref"`
	ADCBits    int     `mapstructure:"adc_bits"`
	SPIDevice  string  `mapstructure:"spi_device"`
	SPISpeedHz uint32  `mapstructure:"spi_speed_hz"`
	Simulate   int     `mapstructure:"simulate"`

	PIDFile  string   `mapstructure:"pid_file"`
	LogLevel LogLevel `mapstructure:"log_level"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"device-id":          "device_id",
	"machine-id":         "machine_id",
	"amplifier-gain":     "amplifier_gain",
	"ct-range-amps":      "ct_range_amps",
	"line-voltage":       "line_voltage",
	"phases":             "phases",
	"sample-rate-hz":     "sample_rate_hz",
	"averaging-window":   "averaging_window",
	"window-pause":       "window_pause",
	"idle-threshold":     "idle_threshold",
	"fault-threshold":    "fault_threshold",
	"csv-path":           "csv_path",
	"csv-flush-interval": "csv_flush_interval",
	"max-records":        "max_records",
	"adc-channel":        "adc_channel",
	"adc-vref":           "adc_vref",
	"adc-bits":           "adc_bits",
	"spi-device":         "spi_device",
	"spi-speed-hz":       "spi_speed_hz",
	"simulate":           "simulate",
	"pid-file":           "pid_file",
	"log-level":          "log_level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device_id", DefaultDeviceID)
	v.SetDefault("machine_id", DefaultMachineID)
	v.SetDefault("amplifier_gain", DefaultAmplifierGain)
	v.SetDefault("ct_range_amps", DefaultCTRangeAmps)
	v.SetDefault("line_voltage", DefaultLineVoltage)
	v.SetDefault("phases", DefaultPhases)
	v.SetDefault("sample_rate_hz", DefaultSampleRateHz)
	v.SetDefault("averaging_window", DefaultAveragingWindow)
	v.SetDefault("window_pause", time.Duration(0))
	v.SetDefault("idle_threshold", DefaultIdleThreshold)
	v.SetDefault("fault_threshold", DefaultFaultThreshold)
	v.SetDefault("csv_path", DefaultCSVPath)
	v.SetDefault("csv_flush_interval", DefaultCSVFlushInterval)
	v.SetDefault("max_records", 0)
	v.SetDefault("adc_channel", 0)
	v.SetDefault("adc_vref", DefaultADCVRef)
	v.SetDefault("adc_bits", DefaultADCBits)
	v.SetDefault("spi_device", DefaultSPIDevice)
	v.SetDefault("spi_speed_hz", DefaultSPISpeedHz)
	v.SetDefault("simulate", SimulateOff)
	v.SetDefault("pid_file", "")
	v.SetDefault("log_level", string(DefaultLogLevel))
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.String("config", "", "Path to the TOML configuration file")
	fs.String("env-file", "", "Path to a dotenv file with POWERMON_* variables")

	fs.String("device-id", DefaultDeviceID, "Identifier of this monitoring device")
	fs.String("machine-id", DefaultMachineID, "Identifier of the monitored machine")
	fs.Float64("amplifier-gain", DefaultAmplifierGain, "Gain of the clamp amplifier stage")
	fs.Float64("ct-range-amps", DefaultCTRangeAmps, "Rated range of the current clamp in amps")
	fs.Float64("line-voltage", DefaultLineVoltage, "Line voltage in volts")
	fs.Int("phases", DefaultPhases, "Phase multiplier (1 or 3)")
	fs.Float64("sample-rate-hz", DefaultSampleRateHz, "ADC sample rate within a window")
	fs.Int("averaging-window", DefaultAveragingWindow, "Samples averaged per record")
	fs.Duration("window-pause", 0, "Pause between windows")
	fs.Float64("idle-threshold", DefaultIdleThreshold, "Current below which the machine is idle (A)")
	fs.Float64("fault-threshold", DefaultFaultThreshold, "Current above which the machine is faulted (A)")
	fs.String("csv-path", DefaultCSVPath, "Path of the CSV readings log")
	fs.Int("csv-flush-interval", DefaultCSVFlushInterval, "Flush the log every N records")
	fs.Int("max-records", 0, "Stop after N records (0 runs indefinitely)")
	fs.Int("adc-channel", 0, "MCP3008 input channel")
	fs.Float64("adc-vref", DefaultADCVRef, "ADC reference voltage")
	fs.Int("adc-bits", DefaultADCBits, "ADC resolution in bits")
	fs.String("spi-device", DefaultSPIDevice, "spidev device node")
	fs.Uint32("spi-speed-hz", DefaultSPISpeedHz, "SPI clock speed")
	fs.Int("simulate", SimulateOff, "Use a simulated ADC returning this raw code (-1 disables)")
	fs.String("pid-file", "", "PID file path (defaults to the temp directory)")
	fs.String("log-level", string(DefaultLogLevel), "Log level (debug, info, warning, error)")

	return fs
}

// Load resolves configuration from flags, environment, optional dotenv and
// TOML files and defaults, in that order of precedence, and validates it.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}

	name := "powermon"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}

	fs := newFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if f := fs.Lookup("env-file"); f.Changed {
		o.envFile = f.Value.String()
	}
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadEnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for flagName, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	if err := readConfigFile(v, fs, o); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}
	config.LogLevel = LogLevel(strings.ToLower(string(config.LogLevel)))
	if config.LogLevel == "warn" {
		config.LogLevel = LogLevelWarning
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet, o options) error {
	errFactory := errors.New()

	path := o.configPath
	if f := fs.Lookup("config"); f.Changed {
		path = f.Value.String()
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// MaxCode is the largest raw code the configured ADC can produce
func (c *Config) MaxCode() int {
	return 1<<c.ADCBits - 1
}

// SampleInterval is the pause between consecutive samples of a window
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.SampleRateHz)
}

// Validate checks parameter combinations. Any failure is a configuration
// error and is reported before the sampling loop starts.
func (c *Config) Validate() error {
	errFactory := errors.New()

	invalid := func(field string, value interface{}, reason string) error {
		return errFactory.Wrap(errors.ErrInvalidConfig, &ValidationError{
			Field:  field,
			Value:  value,
			Reason: reason,
		})
	}

	switch {
	case c.AveragingWindow < 1:
		return invalid("averaging_window", c.AveragingWindow, "must be at least 1")
	case c.SampleRateHz <= 0:
		return invalid("sample_rate_hz", c.SampleRateHz, "must be greater than 0")
	case float64(time.Second)/c.SampleRateHz > math.MaxInt64:
		return invalid("sample_rate_hz", c.SampleRateHz, "sample interval overflows")
	case c.SampleInterval() <= 0:
		return invalid("sample_rate_hz", c.SampleRateHz, "sample interval below 1ns")
	case c.IdleThreshold >= c.FaultThreshold:
		return invalid("idle_threshold", c.IdleThreshold, "must be below fault_threshold")
	case c.CSVFlushInterval < 1:
		return invalid("csv_flush_interval", c.CSVFlushInterval, "must be at least 1")
	case c.MaxRecords < 0:
		return invalid("max_records", c.MaxRecords, "must not be negative")
	case c.Phases < 1:
		return invalid("phases", c.Phases, "must be at least 1")
	case c.AmplifierGain <= 0:
		return invalid("amplifier_gain", c.AmplifierGain, "must be greater than 0")
	case c.CTRangeAmps <= 0:
		return invalid("ct_range_amps", c.CTRangeAmps, "must be greater than 0")
	case c.LineVoltage <= 0:
		return invalid("line_voltage", c.LineVoltage, "must be greater than 0")
	case c.ADCBits < 1 || c.ADCBits > maxADCBits:
		return invalid("adc_bits", c.ADCBits, fmt.Sprintf("must be between 1 and %d", maxADCBits))
	case c.ADCVRef <= 0:
		return invalid("adc_vref", c.ADCVRef, "must be greater than 0")
	case c.ADCChannel < 0 || c.ADCChannel > maxADCChannel:
		return invalid("adc_channel", c.ADCChannel, fmt.Sprintf("must be between 0 and %d", maxADCChannel))
	case c.WindowPause < 0:
		return invalid("window_pause", c.WindowPause, "must not be negative")
	case c.CSVPath == "":
		return invalid("csv_path", c.CSVPath, "must not be empty")
	case c.Simulate < SimulateOff || c.Simulate > c.MaxCode():
		return invalid("simulate", c.Simulate, fmt.Sprintf("must be -1 or between 0 and %d", c.MaxCode()))
	case !c.LogLevel.IsValid():
		return errFactory.Wrap(errors.ErrInvalidLogLevel, &ValidationError{
			Field:  "log_level",
			Value:  c.LogLevel,
			Reason: "must be one of debug, info, warning, error",
		})
	}

	return nil
}

func formatValue(v interface{}) string {
	return fmt.Sprintf("%v", v)
}
