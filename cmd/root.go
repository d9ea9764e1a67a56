// SPDX-License-Identifier: AGPL-3.0-or-later
// M17Host - Bridge an MMDVM modem to M17 IP networks in a single binary
// Copyright (C) 2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/USA-RedDragon/M17Host>

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/USA-RedDragon/M17Host/internal/config"
	"github.com/USA-RedDragon/M17Host/internal/host"
	"github.com/USA-RedDragon/M17Host/internal/m17"
	"github.com/USA-RedDragon/M17Host/internal/metrics"
	"github.com/USA-RedDragon/M17Host/internal/modem"
	"github.com/USA-RedDragon/M17Host/internal/pprof"
	"github.com/USA-RedDragon/configulator"
	"github.com/go-co-op/gocron/v2"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "M17Host",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("M17Host - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cleanup, err := setupTracing(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	defer func() {
		if err := cleanup(ctx); err != nil {
			slog.Error("Failed to shutdown tracer", "error", err)
		}
	}()

	startBackgroundServices(cfg)

	m := metrics.NewMetrics()

	radio, err := createModem(cfg, m)
	if err != nil {
		return fmt.Errorf("unable to create modem: %w", err)
	}
	defer radio.Close()

	if err := configureModem(cfg, radio); err != nil {
		return fmt.Errorf("unable to configure modem: %w", err)
	}

	hostCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	arbiter := host.NewHost(radio, m)

	var network *m17.Network
	if cfg.M17.Enabled {
		if cfg.M17.Network.Enabled {
			network = m17.NewNetwork(m17.NetworkConfig{
				LocalAddress:   cfg.M17.Network.LocalAddress,
				LocalPort:      cfg.M17.Network.LocalPort,
				GatewayAddress: cfg.M17.Network.GatewayAddress,
				GatewayPort:    cfg.M17.Network.GatewayPort,
				Debug:          cfg.M17.Network.Debug,
			}, m)
			if err := network.Open(ctx); err != nil {
				return fmt.Errorf("unable to create M17 network: %w", err)
			}
			network.Enable(true)
			defer network.Close(ctx)
		}

		controller := m17.NewController(m17.ControllerConfig{
			Callsign:        cfg.Callsign,
			CAN:             cfg.M17.CAN,
			CANFilter:       cfg.M17.CANFilter,
			SelfOnly:        cfg.M17.SelfOnly,
			AllowEncryption: cfg.M17.AllowEncryption,
			TXHang:          time.Duration(cfg.M17.TXHangSeconds) * time.Second,
		}, networkOrNil(network), radio, m)

		arbiter.AddHandler(host.ModeM17, host.NewM17Pipeline(controller, network),
			time.Duration(cfg.M17.ModeHangSeconds)*time.Second)
	}

	scheduler, err := setupCWID(cfg, radio)
	if err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.Start()
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Error("Failed to stop scheduler", "error", err)
			}
		}()
	}

	go arbiter.Run(hostCtx)
	slog.Info("M17Host ready")

	waitForShutdown(cancel)
	return nil
}

// networkOrNil avoids storing a typed nil in the controller's interface
// field when the network is disabled.
func networkOrNil(network *m17.Network) m17.NetGateway {
	if network == nil {
		return nil
	}
	return network
}

// loadConfig loads the configuration from context
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// setupLogger configures the structured logger
func setupLogger(cfg *config.Config) {
	var logger *slog.Logger
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		// Fall back to info level for unrecognized log levels to prevent nil logger panic
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
}

// setupTracing initializes OpenTelemetry tracing if configured.
// When tracing is not configured it returns a no-op cleanup function.
func setupTracing(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.Metrics.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	return initTracer(cfg)
}

// startBackgroundServices starts metrics and pprof servers
func startBackgroundServices(cfg *config.Config) {
	go func() {
		err := metrics.CreateMetricsServer(cfg)
		if err != nil {
			slog.Error("Failed to start metrics server", "error", err)
		}
	}()
	go pprof.CreatePProfServer(cfg)
}

// createModem attaches the modem over the configured transport.
func createModem(cfg *config.Config, m *metrics.Metrics) (*modem.Modem, error) {
	var radio *modem.Modem
	var err error
	switch cfg.Modem.Protocol {
	case config.ModemProtocolUART:
		radio, err = modem.NewUARTModem(cfg.Modem.UARTPort, cfg.Modem.UARTSpeed, cfg.Modem.Debug, m)
	case config.ModemProtocolUDP:
		radio, err = modem.NewUDPModem(cfg.Modem.Address, cfg.Modem.Port, cfg.Modem.Debug, m)
	default:
		return nil, config.ErrInvalidModemProtocol
	}
	if err != nil {
		return nil, err
	}
	if err := radio.Open(); err != nil {
		return nil, err
	}
	return radio, nil
}

// configureModem programs the RF front end and per-mode parameters.
func configureModem(cfg *config.Config, radio *modem.Modem) error {
	if err := radio.SetRFParams(modem.RFParams{
		RXFrequency: cfg.Modem.RXFrequency,
		TXFrequency: cfg.Modem.TXFrequency,
		RXOffset:    cfg.Modem.RXOffset,
		TXOffset:    cfg.Modem.TXOffset,
		RXDCOffset:  cfg.Modem.RXDCOffset,
		TXDCOffset:  cfg.Modem.TXDCOffset,
		RFLevel:     cfg.Modem.RFLevel,
	}); err != nil {
		return err
	}

	if err := radio.SetModeParams(modem.ModeFlags{
		DStar: cfg.DStar.Enabled,
		DMR:   cfg.DMR.Enabled,
		YSF:   cfg.YSF.Enabled,
		P25:   cfg.P25.Enabled,
		NXDN:  cfg.NXDN.Enabled,
		M17:   cfg.M17.Enabled,
		FM:    cfg.FM.Enabled,
		AX25:  cfg.AX25.Enabled,
	}); err != nil {
		return err
	}

	if err := radio.SetLevels(modem.Levels{
		RX:    cfg.Modem.RXLevel,
		CWID:  cfg.Modem.TXLevel,
		DStar: cfg.Modem.TXLevel,
		DMR:   cfg.Modem.TXLevel,
		YSF:   cfg.Modem.TXLevel,
		P25:   cfg.Modem.TXLevel,
		NXDN:  cfg.Modem.TXLevel,
		M17:   cfg.Modem.TXLevel,
		FM:    cfg.Modem.TXLevel,
		AX25:  cfg.Modem.TXLevel,
	}); err != nil {
		return err
	}

	if cfg.M17.Enabled {
		txHang := min(cfg.M17.TXHangSeconds, 255)
		if err := radio.SetM17Params(uint8(txHang)); err != nil {
			return err
		}
	}

	return radio.WriteConfig()
}

// setupCWID schedules the periodic CW identification.
func setupCWID(cfg *config.Config, radio *modem.Modem) (gocron.Scheduler, error) {
	if !cfg.CWID.Enabled {
		return nil, nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Duration(cfg.CWID.Time)*time.Minute),
		gocron.NewTask(func() {
			if err := radio.SendCWID(cfg.Callsign); err != nil {
				slog.Error("Failed to send CW ID", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule CW ID: %w", err)
	}
	return scheduler, nil
}

// waitForShutdown blocks until SIGINT/SIGTERM/SIGQUIT/SIGHUP is received,
// then cancels the host context so the deferred teardown runs in order.
func waitForShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	sig := <-sigCh
	slog.Error("Shutting down due to signal", "signal", sig)
	cancel()

	// Give the host loop a moment to stop its handlers.
	time.Sleep(10 * time.Millisecond)
}

func initTracer(config *config.Config) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(config.Metrics.OTLPEndpoint),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "M17Host"),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resources: %w", err)
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)
	return exporter.Shutdown, nil
}
