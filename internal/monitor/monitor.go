package monitor

import (
	"context"
	"time"

	"codeberg.org/mutker/powermon/internal/adc"
	"codeberg.org/mutker/powermon/internal/config"
	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/logger"
	"codeberg.org/mutker/powermon/internal/power"
	"codeberg.org/mutker/powermon/internal/telemetry"
)

// Controller drives the sample -> convert -> estimate -> classify -> record
// cycle on a single goroutine.
type Controller struct {
	cfg        *config.Config
	device     adc.Device
	sampler    adc.Sampler
	converter  *power.Converter
	classifier power.Classifier
	writer     telemetry.Collector
	now        func() time.Time

	state   State
	records int
}

// New wires the pipeline around an opened device and a record writer. The
// controller takes ownership of both and releases them when Run returns.
func New(cfg *config.Config, device adc.Device, writer telemetry.Collector) *Controller {
	return &Controller{
		cfg:     cfg,
		device:  device,
		sampler: adc.NewChannelSampler(device, cfg.ADCChannel, cfg.MaxCode()),
		converter: power.NewConverter(power.Calibration{
			VRef:          cfg.ADCVRef,
			MaxCode:       cfg.MaxCode(),
			AmplifierGain: cfg.AmplifierGain,
			CTRangeAmps:   cfg.CTRangeAmps,
		}, cfg.AveragingWindow),
		classifier: power.NewClassifier(cfg.IdleThreshold, cfg.FaultThreshold),
		writer:     writer,
		now:        time.Now,
		state:      StateRunning,
	}
}

func (c *Controller) State() State {
	return c.state
}

// Records returns the number of readings produced so far
func (c *Controller) Records() int {
	return c.records
}

// Run cycles until MaxRecords is reached, ctx is cancelled or a cycle fails.
// Cancellation abandons the in-flight window. Buffered rows are flushed and
// the device is released on every exit path.
func (c *Controller) Run(ctx context.Context) (err error) {
	defer func() {
		err = errors.Join(err, c.shutdown())
	}()

	interval := c.cfg.SampleInterval()
	if interval <= 0 {
		return errors.New().WithData(errors.ErrInvalidConfig, interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().
		Dur("sample_interval", interval).
		Int("averaging_window", c.cfg.AveragingWindow).
		Int("max_records", c.cfg.MaxRecords).
		Msg("Sampling loop started")

	for c.state == StateRunning {
		reading, ok, err := c.cycle(ctx, ticker.C)
		if err != nil {
			c.state = StateStopping
			return err
		}
		if !ok {
			logger.Info().Int("pending_samples", c.converter.Pending()).Msg("Termination requested, abandoning window")
			c.converter.Discard()
			c.state = StateStopping
			return nil
		}

		if err := c.writer.Record(reading); err != nil {
			c.state = StateStopping
			return err
		}
		c.records++

		logger.Debug().
			Float64("current_rms", reading.Current).
			Float64("power_w", reading.Power).
			Str("state", reading.State.String()).
			Int("records", c.records).
			Msg("")

		if c.cfg.MaxRecords > 0 && c.records >= c.cfg.MaxRecords {
			logger.Info().Int("records", c.records).Msg("Record limit reached")
			c.state = StateStopping
			return nil
		}

		if c.cfg.WindowPause > 0 {
			if !sleep(ctx, c.cfg.WindowPause) {
				c.state = StateStopping
				return nil
			}
			ticker.Reset(interval)
		}
	}

	return nil
}

// cycle fills one window and derives a reading. ok is false when ctx was
// cancelled before the window completed.
func (c *Controller) cycle(ctx context.Context, tick <-chan time.Time) (telemetry.Reading, bool, error) {
	for !c.converter.Ready() {
		if ctx.Err() != nil {
			return telemetry.Reading{}, false, nil
		}

		sample, err := c.sampler.ReadSample()
		if err != nil {
			return telemetry.Reading{}, false, err
		}
		c.converter.Push(sample)

		select {
		case <-ctx.Done():
			return telemetry.Reading{}, false, nil
		case <-tick:
		}
	}

	current := c.converter.Current()

	return telemetry.Reading{
		Timestamp:   c.now().UTC(),
		DeviceID:    c.cfg.DeviceID,
		MachineID:   c.cfg.MachineID,
		Current:     current,
		LineVoltage: c.cfg.LineVoltage,
		Power:       power.Estimate(current, c.cfg.LineVoltage, c.cfg.Phases),
		State:       c.classifier.Classify(current),
	}, true, nil
}

// shutdown performs the STOPPING -> STOPPED transition
func (c *Controller) shutdown() error {
	c.state = StateStopping

	writerErr := c.writer.Close()
	if writerErr != nil {
		logger.Error().Err(writerErr).Msg("Failed to flush readings on shutdown")
	}

	var deviceErr error
	if err := c.device.Close(); err != nil {
		deviceErr = errors.New().Wrap(errors.ErrShutdownFailed, err)
		logger.Error().Err(err).Msg("Failed to release ADC device")
	}

	c.state = StateStopped
	logger.Info().Int("records", c.records).Msg("Sampling loop stopped")

	return errors.Join(writerErr, deviceErr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
