package flags

import (
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/windsend/windsend-go/common"
	"github.com/windsend/windsend-go/config"
	"github.com/windsend/windsend-go/httpserver"
)

// SetupLogger builds a logger from the log flags. level is the textual level
// from the config file and dir the rolling log directory; either may be empty.
func SetupLogger(cCtx *cli.Context, level, dir string) (log *slog.Logger) {
	if cCtx.Bool(LogStdoutFlag.Name) {
		dir = ""
	}

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: cCtx.String(LogServiceFlag.Name),
		Version: common.Version,
		Level:   level,
		Dir:     dir,
	})

	if cCtx.Bool(LogUidFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// Paths resolves the artifact locations, letting flags override the platform defaults.
func Paths(cCtx *cli.Context) config.Paths {
	paths := config.CurrentPaths()
	if cCtx.IsSet(ConfigFileFlag.Name) {
		paths.ConfigFile = cCtx.String(ConfigFileFlag.Name)
	}
	if cCtx.IsSet(TLSDirFlag.Name) {
		paths.TLSDir = cCtx.String(TLSDirFlag.Name)
	}
	if cCtx.IsSet(LogDirFlag.Name) {
		paths.LogDir = cCtx.String(LogDirFlag.Name)
	}
	return paths
}

func Features(cCtx *cli.Context) config.Features {
	return config.Features{DisableSystray: cCtx.Bool(DisableSystrayFlag.Name)}
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, port string) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               net.JoinHostPort(cCtx.String(ListenHostFlag.Name), port),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ConfigFileFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "path to the YAML config file (default: platform config location)",
	EnvVars: []string{"WINDSEND_CONFIG"},
}

var TLSDirFlag = &cli.StringFlag{
	Name:    "tls-dir",
	Usage:   "directory holding cert.pem, key.pem, ca_cert.pem and ca_key.pem",
	EnvVars: []string{"WINDSEND_TLS_DIR"},
}

var LogDirFlag = &cli.StringFlag{
	Name:  "log-dir",
	Usage: "directory for the rolling log file",
}

var DisableSystrayFlag = &cli.BoolFlag{
	Name:    "disable-systray",
	Value:   false,
	Usage:   "run headless: no tray icon, discoverable by default",
	EnvVars: []string{"WINDSEND_DISABLE_SYSTRAY"},
}

var ListenHostFlag = &cli.StringFlag{
	Name:  "listen-host",
	Value: "0.0.0.0",
	Usage: "host to bind the pairing API to; the port comes from serverPort in the config",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogStdoutFlag = &cli.BoolFlag{
	Name:  "log-stdout",
	Value: false,
	Usage: "log to stdout instead of the rolling log file",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint (trusted hosts only)",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 0,
	Usage: "seconds to stay unready before shutting down",
}

// PathFlags locate the config, TLS and log artifacts.
var PathFlags = []cli.Flag{
	ConfigFileFlag,
	TLSDirFlag,
	LogDirFlag,
	DisableSystrayFlag,
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogStdoutFlag,
	LogUidFlag,
	LogServiceFlag,
}

var ServerFlags = []cli.Flag{
	ListenHostFlag,
	PprofFlag,
	DrainSecondsFlag,
}
