package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/windsend/windsend-go/app"
	"github.com/windsend/windsend-go/cmd/flags"
	"github.com/windsend/windsend-go/common"
	"github.com/windsend/windsend-go/interfaces"
)

const redacted = "<redacted>"

func main() {
	cliApp := &cli.App{
		Name:    "windsendctl",
		Usage:   "Inspect the local WindSend identity, certificates and config",
		Version: common.Version,
		Flags:   append(append([]cli.Flag{}, flags.PathFlags...), flags.CommonFlags...),
		Commands: []*cli.Command{
			{
				Name:   "device-id",
				Usage:  "print the device id derived from the secret",
				Action: deviceID,
			},
			{
				Name:   "ca-cert",
				Usage:  "print the CA certificate peers should pin",
				Action: caCert,
			},
			{
				Name:      "check-trust",
				Usage:     "report whether a host would be trusted",
				ArgsUsage: "<host>",
				Action:    checkTrust,
			},
			{
				Name:  "show-config",
				Usage: "print the active config",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "show-secrets",
						Usage: "print secretKeyHex and relaySecretKey instead of redacting them",
					},
				},
				Action: showConfig,
			},
			{
				Name:   "relay",
				Usage:  "print the relay settings and channel key id",
				Action: relayInfo,
			},
			{
				Name:  "init",
				Usage: "create the config and TLS material if they are missing",
				Action: func(cCtx *cli.Context) error {
					core, err := app.Bootstrap(cCtx.Context, app.Options{
						Paths:    flags.Paths(cCtx),
						Features: flags.Features(cCtx),
						Log:      logger(cCtx),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(cCtx.App.Writer, "config: %s\ntls: %s\n", core.ConfigPath(), core.TLSDir())
					return nil
				},
			},
			{
				Name:  "discoverable",
				Usage: "make the device discoverable once on next start",
				Action: func(cCtx *cli.Context) error {
					core, err := open(cCtx)
					if err != nil {
						return err
					}
					cfg := core.Config()
					cfg.AllowToBeSearchedOnce = true
					return core.ReplaceConfig(cCtx.Context, cfg)
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func logger(cCtx *cli.Context) *slog.Logger {
	if cCtx.Bool(flags.LogDebugFlag.Name) {
		return flags.SetupLogger(cCtx, "", "")
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// open loads the existing installation without generating anything.
func open(cCtx *cli.Context) (*app.App, error) {
	core, err := app.Open(cCtx.Context, app.Options{
		Paths:    flags.Paths(cCtx),
		Features: flags.Features(cCtx),
		Log:      logger(cCtx),
	})
	if errors.Is(err, interfaces.ErrContentNotFound) {
		return nil, cli.Exit(fmt.Sprintf("%v\nrun \"windsendctl init\" or start windsend first", err), 1)
	}
	return core, err
}

func deviceID(cCtx *cli.Context) error {
	core, err := open(cCtx)
	if err != nil {
		return err
	}
	id, err := core.DeviceID()
	if err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, id)
	return nil
}

func caCert(cCtx *cli.Context) error {
	core, err := open(cCtx)
	if err != nil {
		return err
	}
	pem, err := core.CACertificatePEM(cCtx.Context)
	if err != nil {
		return err
	}
	fmt.Fprint(cCtx.App.Writer, pem)
	return nil
}

func checkTrust(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return cli.Exit("expected exactly one host", 2)
	}
	core, err := open(cCtx)
	if err != nil {
		return err
	}
	host := cCtx.Args().First()
	if core.Config().AllowToBeSearchedOnce {
		fmt.Fprintln(cCtx.App.Writer, "note: allowToBeSearchedOnce is set, a running server trusts every host while it is discoverable")
	}
	if core.IsTrusted(host) {
		fmt.Fprintf(cCtx.App.Writer, "%s: trusted\n", host)
		return nil
	}
	fmt.Fprintf(cCtx.App.Writer, "%s: not trusted\n", host)
	return cli.Exit("", 1)
}

func showConfig(cCtx *cli.Context) error {
	core, err := open(cCtx)
	if err != nil {
		return err
	}
	cfg := core.Config()
	if !cCtx.Bool("show-secrets") {
		cfg.SecretKeyHex = redacted
		if cfg.RelaySecretKey != nil && *cfg.RelaySecretKey != "" {
			hidden := redacted
			cfg.RelaySecretKey = &hidden
		}
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "# %s\n%s", core.ConfigPath(), data)
	return nil
}

func relayInfo(cCtx *cli.Context) error {
	core, err := open(cCtx)
	if err != nil {
		return err
	}
	settings := core.Relay()
	fmt.Fprintf(cCtx.App.Writer, "enabled: %t\naddress: %s\n", settings.Enabled(), settings.ServerAddress)
	if settings.SecretKey == "" {
		fmt.Fprintln(cCtx.App.Writer, "key id: (no secret)")
		return nil
	}
	keyID, err := settings.KeyID()
	if err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "key id: %s\n", keyID)
	return nil
}
