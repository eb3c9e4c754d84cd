package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/padhost/internal/device"
	goble "github.com/srg/padhost/internal/device/go-ble"
	"github.com/srg/padhost/internal/groutine"
	"github.com/srg/padhost/internal/host"
	"github.com/srg/padhost/internal/steam"
	"github.com/srg/padhost/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller host",
	Long: `Open the local Bluetooth adapter, publish the controller service, advertise it
and bring up the configured Steam Controllers. Runs until Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveConfigPath  string
	serveControllers []string
)

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to a YAML configuration file")
	serveCmd.Flags().StringSliceVar(&serveControllers, "controller", nil, "Steam Controller address to connect (repeatable)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	cfg.Controllers = append(cfg.Controllers, serveControllers...)
	addrs, err := cfg.ControllerAddresses()
	if err != nil {
		return err
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Listen for Ctrl+C to stop
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nCtrl+C pressed, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	dev, err := goble.DeviceFactory()
	if err != nil {
		return fmt.Errorf("failed to open BLE device: %w", err)
	}
	defer func() {
		if err := dev.Stop(); err != nil {
			logger.WithField("error", err).Debug("BLE device stop failed")
		}
	}()

	h, err := host.New(ctx, dev, cfg.HostOptions(version), logger)
	if err != nil {
		return err
	}
	if err := h.Start(ctx); err != nil {
		cancel()
		h.Wait()
		return err
	}

	connect := groutine.NewGroup(ctx)
	connect.Go("controller-connect", func(ctx context.Context) {
		for _, addr := range addrs {
			connectController(ctx, connect, h, addr, logger)
		}
	})

	<-ctx.Done()
	connect.Wait()
	h.Wait()
	logger.Info("Controller host stopped")
	return nil
}

// connectController dials addr and logs how its bring-up ends.
func connectController(ctx context.Context, group *groutine.Group, h *host.Host, addr device.Address, logger *logrus.Logger) {
	res, err := h.Connect(ctx, addr)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.WithField("address", addr.String()).Error(FormatUserError(err))
		}
		return
	}

	group.Go("bring-up-wait", func(ctx context.Context) {
		err := res.Wait(ctx)
		var stall *steam.StallError
		switch {
		case err == nil:
			logger.WithField("address", addr.String()).Info("Controller ready")
		case errors.As(err, &stall):
			logger.WithFields(logrus.Fields{
				"address": addr.String(),
				"state":   stall.State.String(),
				"status":  stall.Status.Error(),
			}).Error("Controller bring-up stalled")
		case errors.Is(err, steam.ErrAbandoned), errors.Is(err, context.Canceled):
		default:
			logger.WithField("error", err).Warn("Controller bring-up wait failed")
		}
	})
}
