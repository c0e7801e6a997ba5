package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/powermon/internal/config"
	"codeberg.org/mutker/powermon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	configPath := writeFile(t, "powermon.toml", `
device_id = "pi-042"
machine_id = "press-7"
amplifier_gain = 80.0
ct_range_amps = 30.0
line_voltage = 120.0
phases = 1
sample_rate_hz = 100
averaging_window = 40
window_pause = "500ms"
idle_threshold = 0.2
fault_threshold = 25.0
csv_path = "/data/readings.csv"
csv_flush_interval = 5
max_records = 1000
adc_channel = 2
log_level = "debug"
`)
	t.Setenv("POWERMON_CONFIG", configPath)

	cfg, err := config.Load([]string{"powermon"})
	require.NoError(t, err)

	assert.Equal(t, "pi-042", cfg.DeviceID)
	assert.Equal(t, "press-7", cfg.MachineID)
	assert.InDelta(t, 80.0, cfg.AmplifierGain, 1e-9)
	assert.InDelta(t, 30.0, cfg.CTRangeAmps, 1e-9)
	assert.InDelta(t, 120.0, cfg.LineVoltage, 1e-9)
	assert.Equal(t, 1, cfg.Phases)
	assert.InDelta(t, 100.0, cfg.SampleRateHz, 1e-9)
	assert.Equal(t, 40, cfg.AveragingWindow)
	assert.Equal(t, 500*time.Millisecond, cfg.WindowPause)
	assert.InDelta(t, 0.2, cfg.IdleThreshold, 1e-9)
	assert.InDelta(t, 25.0, cfg.FaultThreshold, 1e-9)
	assert.Equal(t, "/data/readings.csv", cfg.CSVPath)
	assert.Equal(t, 5, cfg.CSVFlushInterval)
	assert.Equal(t, 1000, cfg.MaxRecords)
	assert.Equal(t, 2, cfg.ADCChannel)
	assert.Equal(t, config.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, 10*time.Millisecond, cfg.SampleInterval())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load([]string{"powermon"}, config.WithConfigFile(filepath.Join(t.TempDir(), "absent.toml")))
	require.Error(t, err, "explicit config file must exist")

	t.Setenv("POWERMON_CONFIG", "")
	cfg, err = config.Load([]string{"powermon"}, config.WithEnvPrefix("POWERMON_TEST_DEFAULTS"))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultDeviceID, cfg.DeviceID)
	assert.Equal(t, config.DefaultMachineID, cfg.MachineID)
	assert.InDelta(t, 100.0, cfg.AmplifierGain, 1e-9)
	assert.InDelta(t, 50.0, cfg.CTRangeAmps, 1e-9)
	assert.InDelta(t, 230.0, cfg.LineVoltage, 1e-9)
	assert.Equal(t, 3, cfg.Phases)
	assert.InDelta(t, 50.0, cfg.SampleRateHz, 1e-9)
	assert.Equal(t, 20, cfg.AveragingWindow)
	assert.InDelta(t, 0.5, cfg.IdleThreshold, 1e-9)
	assert.InDelta(t, 100.0, cfg.FaultThreshold, 1e-9)
	assert.Equal(t, 10, cfg.CSVFlushInterval)
	assert.Equal(t, 0, cfg.MaxRecords)
	assert.Equal(t, config.SimulateOff, cfg.Simulate)
	assert.Equal(t, 1023, cfg.MaxCode())
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, 20*time.Millisecond, cfg.SampleInterval())
}

func TestLoadPrecedence(t *testing.T) {
	configPath := writeFile(t, "powermon.toml", `
device_id = "from-file"
machine_id = "from-file"
phases = 1
`)
	t.Setenv("POWERMON_MACHINE_ID", "from-env")
	t.Setenv("POWERMON_PHASES", "3")

	cfg, err := config.Load(
		[]string{"powermon", "--device-id", "from-flag", "--config", configPath},
	)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.DeviceID)
	assert.Equal(t, "from-env", cfg.MachineID)
	assert.Equal(t, 3, cfg.Phases)
}

func TestLoadEnvFile(t *testing.T) {
	envPath := writeFile(t, "powermon.env", "POWERMON_MACHINE_ID=lathe-3\nPOWERMON_MAX_RECORDS=12\n")
	t.Cleanup(func() {
		os.Unsetenv("POWERMON_MACHINE_ID")
		os.Unsetenv("POWERMON_MAX_RECORDS")
	})

	cfg, err := config.Load(
		[]string{"powermon", "--env-file", envPath},
		config.WithConfigFile(writeFile(t, "empty.toml", "")),
	)
	require.NoError(t, err)

	assert.Equal(t, "lathe-3", cfg.MachineID)
	assert.Equal(t, 12, cfg.MaxRecords)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeFile(t, "powermon.toml", `
This is not a valid TOML file
`)
	t.Setenv("POWERMON_CONFIG", configPath)

	_, err := config.Load([]string{"powermon"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := config.Load(
		[]string{"powermon", "--log-level", "invalid"},
		config.WithConfigFile(writeFile(t, "empty.toml", "")),
	)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestLogLevelFlag(t *testing.T) {
	cfg, err := config.Load(
		[]string{"powermon", "--log-level", "WARN"},
		config.WithConfigFile(writeFile(t, "empty.toml", "")),
	)
	require.NoError(t, err)
	assert.Equal(t, config.LogLevelWarning, cfg.LogLevel)
}

func TestLoadRejectsInvalidCombination(t *testing.T) {
	_, err := config.Load(
		[]string{"powermon", "--idle-threshold", "5", "--fault-threshold", "5"},
		config.WithConfigFile(writeFile(t, "empty.toml", "")),
	)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "idle_threshold", verr.Field)
}

func validConfig() config.Config {
	return config.Config{
		DeviceID:         config.DefaultDeviceID,
		MachineID:        config.DefaultMachineID,
		AmplifierGain:    config.DefaultAmplifierGain,
		CTRangeAmps:      config.DefaultCTRangeAmps,
		LineVoltage:      config.DefaultLineVoltage,
		Phases:           config.DefaultPhases,
		SampleRateHz:     config.DefaultSampleRateHz,
		AveragingWindow:  config.DefaultAveragingWindow,
		IdleThreshold:    config.DefaultIdleThreshold,
		FaultThreshold:   config.DefaultFaultThreshold,
		CSVPath:          config.DefaultCSVPath,
		CSVFlushInterval: config.DefaultCSVFlushInterval,
		ADCVRef:          config.DefaultADCVRef,
		ADCBits:          config.DefaultADCBits,
		SPIDevice:        config.DefaultSPIDevice,
		SPISpeedHz:       config.DefaultSPISpeedHz,
		Simulate:         config.SimulateOff,
		LogLevel:         config.DefaultLogLevel,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"window zero", func(c *config.Config) { c.AveragingWindow = 0 }, "averaging_window"},
		{"sample rate zero", func(c *config.Config) { c.SampleRateHz = 0 }, "sample_rate_hz"},
		{"sample rate above 1 GHz", func(c *config.Config) { c.SampleRateHz = 2e9 }, "sample_rate_hz"},
		{"sample interval overflows", func(c *config.Config) { c.SampleRateHz = 1e-12 }, "sample_rate_hz"},
		{"idle above fault", func(c *config.Config) { c.IdleThreshold = 200 }, "idle_threshold"},
		{"idle equals fault", func(c *config.Config) { c.IdleThreshold = c.FaultThreshold }, "idle_threshold"},
		{"flush interval zero", func(c *config.Config) { c.CSVFlushInterval = 0 }, "csv_flush_interval"},
		{"negative max records", func(c *config.Config) { c.MaxRecords = -1 }, "max_records"},
		{"no phases", func(c *config.Config) { c.Phases = 0 }, "phases"},
		{"zero gain", func(c *config.Config) { c.AmplifierGain = 0 }, "amplifier_gain"},
		{"zero clamp range", func(c *config.Config) { c.CTRangeAmps = 0 }, "ct_range_amps"},
		{"zero line voltage", func(c *config.Config) { c.LineVoltage = 0 }, "line_voltage"},
		{"adc bits too wide", func(c *config.Config) { c.ADCBits = 17 }, "adc_bits"},
		{"zero vref", func(c *config.Config) { c.ADCVRef = 0 }, "adc_vref"},
		{"channel out of range", func(c *config.Config) { c.ADCChannel = 8 }, "adc_channel"},
		{"negative pause", func(c *config.Config) { c.WindowPause = -time.Second }, "window_pause"},
		{"empty csv path", func(c *config.Config) { c.CSVPath = "" }, "csv_path"},
		{"simulate above max code", func(c *config.Config) { c.Simulate = 1024 }, "simulate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))

			var verr *config.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cfg.Simulate = 1023
	require.NoError(t, cfg.Validate())
}
