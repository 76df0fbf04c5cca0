package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/windsend/windsend-go/app"
	"github.com/windsend/windsend-go/cmd/flags"
	"github.com/windsend/windsend-go/common"
	"github.com/windsend/windsend-go/config"
	"github.com/windsend/windsend-go/httpserver"
	"github.com/windsend/windsend-go/interfaces"
)

func main() {
	cliApp := &cli.App{
		Name:    "windsend",
		Usage:   "Run the WindSend pairing endpoint",
		Version: common.Version,
		Flags:   append(append(append([]cli.Flag{}, flags.PathFlags...), flags.CommonFlags...), flags.ServerFlags...),
		Action:  run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	paths := flags.Paths(cCtx)
	feats := flags.Features(cCtx)

	level, err := configuredLogLevel(cCtx, paths.ConfigFile, feats)
	if err != nil {
		return err
	}
	logger := flags.SetupLogger(cCtx, level, paths.LogDir)

	core, err := app.Bootstrap(cCtx.Context, app.Options{
		Paths:         paths,
		Features:      feats,
		EagerAcceptor: true,
		Log:           logger,
	})
	if err != nil {
		logger.Error("Bootstrap failed", "err", err)
		return err
	}

	cfg := core.Config()

	acc, err := core.TLSAcceptor()
	if err != nil {
		return err
	}

	server := httpserver.New(
		flags.ConfigureServer(cCtx, logger, cfg.ServerPort),
		httpserver.NewHandler(core, logger),
		acc,
	)
	if err := server.Listen(); err != nil {
		logger.Error("Failed to listen", "err", err)
		return err
	}
	server.RunInBackground()

	deviceID, err := core.DeviceID()
	if err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "WindSend %s listening on %s (device id %s)\n", common.Version, server.Addr(), deviceID)

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit

	logger.Info("Shutting down")
	server.Shutdown()
	return nil
}

// configuredLogLevel reads the log level from an existing config without
// modifying it. On first run there is no config yet and the default applies.
func configuredLogLevel(cCtx *cli.Context, path string, feats config.Features) (string, error) {
	store, err := config.Open(cCtx.Context, path, feats, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if errors.Is(err, interfaces.ErrContentNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return store.Get().LogLevel, nil
}
