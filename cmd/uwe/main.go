package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/uwe-app/app-sub001/internal/config"
	enginerr "github.com/uwe-app/app-sub001/internal/errors"
	"github.com/uwe-app/app-sub001/internal/version"
)

var CLI struct {
	Config  string           `short:"c" help:"Site configuration file path" default:"site.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Build struct {
		Prefix   string `arg:"" optional:"" help:"Only build files under this source path"`
		Force    bool   `short:"f" help:"Rebuild every file regardless of the manifest"`
		Release  bool   `short:"r" help:"Release profile: drafts are suppressed"`
		FailFast bool   `help:"Abort the pass on the first file error"`
		Workers  int    `short:"w" help:"Worker pool size (0 = available parallelism)"`
	} `cmd:"" help:"Build the site"`

	Dev struct {
		Interval time.Duration `help:"Optional periodic full rebuild interval"`
	} `cmd:"" help:"Watch the source tree and rebuild changed files"`

	Clean struct{} `cmd:"" help:"Remove the output tree and the build manifest"`
}

func main() {
	kctx := kong.Parse(&CLI, kong.Vars{"version": version.Version})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	switch command := kctx.Command(); {
	case strings.HasPrefix(command, "build"):
		if CLI.Build.Force {
			cfg.Build.Force = true
		}
		if CLI.Build.Release {
			cfg.Build.Release = true
		}
		if CLI.Build.FailFast {
			cfg.Build.FailFast = true
		}
		if CLI.Build.Workers > 0 {
			cfg.Build.Workers = CLI.Build.Workers
		}
		if err := runBuild(ctx, cfg, CLI.Build.Prefix); err != nil {
			slog.Error("Build failed",
				"category", enginerr.GetCategory(err),
				"error", err)
			os.Exit(1)
		}
	case command == "dev":
		if err := runDev(ctx, cfg, CLI.Dev.Interval); err != nil {
			slog.Error("Dev mode failed", "error", err)
			os.Exit(1)
		}
	case command == "clean":
		if err := runClean(cfg); err != nil {
			slog.Error("Clean failed", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Unknown command", "command", command)
		os.Exit(1)
	}
}
