package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/powermon/internal/adc"
	"codeberg.org/mutker/powermon/internal/config"
	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/logger"
	"codeberg.org/mutker/powermon/internal/monitor"
	"codeberg.org/mutker/powermon/internal/pid"
	"codeberg.org/mutker/powermon/internal/telemetry"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

func main() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	os.Exit(run(os.Args, sigs))
}

// run returns the process exit code. A value received on sigs stops the
// sampling loop gracefully.
func run(args []string, sigs <-chan os.Signal) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.LogLevel.String(), logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	logger.SetRunID(uuid.NewString())
	logger.Debug().Msg("Config loaded")

	logger.Info().
		Str("device_id", cfg.DeviceID).
		Str("machine_id", cfg.MachineID).
		Str("csv_path", cfg.CSVPath).
		Msg("Starting power monitor")
	logger.Info().
		Float64("amplifier_gain", cfg.AmplifierGain).
		Float64("ct_range_amps", cfg.CTRangeAmps).
		Int("phases", cfg.Phases).
		Float64("line_voltage", cfg.LineVoltage).
		Msg("Calibration")

	pidPath := cfg.PIDFile
	if pidPath == "" {
		pidPath = pid.DefaultPath()
	}
	if err := pid.Write(pidPath); err != nil {
		logger.ErrorWithCode(err).Str("pid_file", pidPath).Msg("failed to write PID file")
		return 1
	}
	defer func() {
		if err := pid.Remove(pidPath); err != nil {
			logger.Warn().Err(err).Msg("failed to remove PID file")
		}
	}()

	writer, err := telemetry.NewService(telemetry.Config{
		Path:          cfg.CSVPath,
		FlushInterval: cfg.CSVFlushInterval,
	})
	if err != nil {
		logger.ErrorWithCode(err).Msg("failed to open readings log")
		return 1
	}

	device, err := openDevice(cfg)
	if err != nil {
		logger.ErrorWithCode(err).Msg("failed to open ADC")
		if err := writer.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close readings log")
		}
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(ctx, cancel, sigs)

	controller := monitor.New(cfg, device, writer)
	if err := controller.Run(ctx); err != nil {
		logger.ErrorWithCode(err).
			Int("records", controller.Records()).
			Int("written", writer.Written()).
			Msg("error in main loop")
		return 1
	}

	logger.Info().
		Int("recorded", writer.Recorded()).
		Int("written", writer.Written()).
		Str("csv_path", cfg.CSVPath).
		Msg("Exiting...")

	return 0
}

func openDevice(cfg *config.Config) (adc.Device, error) {
	if cfg.Simulate != config.SimulateOff {
		logger.Warn().Int("raw", cfg.Simulate).Msg("Using simulated ADC")
		return adc.NewSimulator(cfg.Simulate), nil
	}

	device, err := adc.OpenMCP3008(cfg.SPIDevice, cfg.SPISpeedHz)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrAcquisition, err)
	}
	logger.Info().
		Str("spi_device", cfg.SPIDevice).
		Int("channel", cfg.ADCChannel).
		Msg("MCP3008 opened")

	return device, nil
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigs <-chan os.Signal) {
	select {
	case sig := <-sigs:
		logger.Info().Str("signal", sig.String()).Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}
