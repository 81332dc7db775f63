package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"surface/internal/core/config"
	"surface/internal/mcp/runtime"
	"surface/internal/mcp/transport"
)

var (
	configPath = flag.String("config", "./surface.toml", "Path to config file")
	packages   = flag.Bool("packages", false, "List packages in the cache and exit")
	types      = flag.String("types", "", "List exported types of a module path or package id")
	typeName   = flag.String("type", "", "Print a single type definition (requires -types)")
	compare    = flag.Bool("compare", false, "Diff two module versions: <old-path> <new-path> or <package> <old-version> <new-version>")
	mcp        = flag.Bool("mcp", false, "Serve tool calls over stdio")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("surface v%s\n", VERSION)
		os.Exit(0)
	}

	output, closeLogs := logDestination(*ui, *mcp)
	defer closeLogs()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	configureLogging(cfg, output, *verbose)

	if err := validateModes(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *packages:
		out, err := app.ListPackagesOnce(ctx, flag.Arg(0))
		exitOneShot(out, err)

	case *types != "" && *typeName != "":
		out, err := app.GetTypeOnce(ctx, *types, *typeName)
		exitOneShot(out, err)

	case *types != "":
		out, err := app.ListTypesOnce(ctx, *types)
		exitOneShot(out, err)

	case *compare:
		out, breaking, err := app.CompareOnce(ctx, flag.Args())
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Print(out)
		if breaking {
			os.Exit(1)
		}
		os.Exit(0)

	case *mcp:
		if err := runServer(ctx, app); err != nil {
			slog.Error("tool server failed", "error", err)
			os.Exit(1)
		}

	case *ui:
		if err := app.StartWatcher(); err != nil {
			slog.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		if err := runUI(app); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}

	default:
		fmt.Print(app.StatusOnce(ctx))
		flag.Usage()
	}
}

func runServer(ctx context.Context, app *App) error {
	if err := app.StartWatcher(); err != nil {
		return err
	}

	server, err := runtime.New(app.Config, app.Service, transport.NewStdio(app.Config.MCP), slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = server.Stop() }()
	return server.Start(ctx)
}

func exitOneShot(out string, err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Print(out)
	os.Exit(0)
}

func validateModes() error {
	active := 0
	for _, on := range []bool{*packages, *types != "", *compare, *mcp, *ui} {
		if on {
			active++
		}
	}
	if active > 1 {
		return fmt.Errorf("-packages, -types, -compare, -mcp and -ui are mutually exclusive")
	}
	if *typeName != "" && *types == "" {
		return fmt.Errorf("-type requires a -types target")
	}
	if *compare {
		if n := flag.NArg(); n != 2 && n != 3 {
			return fmt.Errorf("compare mode takes <old-path> <new-path> or <package> <old-version> <new-version>")
		}
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == "./surface.toml" && os.IsNotExist(err) {
		return config.Default(), nil
	}
	return nil, err
}

// logDestination keeps stdout clean in the modes that own it: the UI draws
// there and the stdio transport speaks JSON-RPC on it.
func logDestination(uiMode, mcpMode bool) (io.Writer, func()) {
	if mcpMode {
		return os.Stderr, func() {}
	}
	if !uiMode {
		return os.Stdout, func() {}
	}

	logPath := resolveLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		return os.Stderr, func() {}
	}
	if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
		fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		return os.Stderr, func() {}
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
		return os.Stderr, func() {}
	}
	return f, func() { _ = f.Close() }
}

func configureLogging(cfg *config.Config, output io.Writer, verbose bool) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(output, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "surface", "surface.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "surface", "surface.log")
	}

	return "surface.log"
}
