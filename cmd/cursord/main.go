package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vedantwpatil/cursor-bridge/internal/bridge"
	"github.com/vedantwpatil/cursor-bridge/internal/config"
	"github.com/vedantwpatil/cursor-bridge/internal/logging"
	"github.com/vedantwpatil/cursor-bridge/internal/tracking"
)

var (
	version  = "0.1.0"
	cfgFile  string
	addr     string
	logLevel string
)

var log = logging.L("cursord")

// facility is the pointer source behind cursor_position.
var facility tracking.Facility = tracking.DeviceState{}

var rootCmd = &cobra.Command{
	Use:           "cursord",
	Short:         "Cursor position bridge",
	Long:          `cursord answers cursor_position queries from a desktop frontend over a local HTTP/WebSocket bridge.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve commands to the frontend",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := NewApplication()
		if err != nil {
			return err
		}
		return app.Run()
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the current cursor position once",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if level == "" {
			level = "error"
		}
		logging.Init(level, "text", cmd.ErrOrStderr())

		reg := bridge.NewRegistry()
		bridge.RegisterCursorCommands(reg, facility)

		resp := reg.Invoke(cmd.Context(), bridge.Request{Command: bridge.CommandCursorPosition})
		if !resp.OK() {
			return errors.New(resp.Error)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(resp.Result))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cursord v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/cursord/cursord.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	serveCmd.Flags().StringVar(&addr, "addr", "", "override server.addr")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(versionCmd)
}

type Application struct {
	config *config.Config
	server *bridge.Server
	ctx    context.Context
	cancel context.CancelFunc
}

func NewApplication() (*Application, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	reg := bridge.NewRegistry()
	bridge.RegisterCursorCommands(reg, facility)

	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		config: cfg,
		server: bridge.NewServer(bridge.ServerConfig{
			Addr:              cfg.Server.Addr,
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeoutSeconds) * time.Second,
		}, reg),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (app *Application) Run() error {
	defer app.cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go app.handleSignals(sigChan)

	if err := app.server.Start(); err != nil {
		return err
	}

	<-app.ctx.Done()
	return app.cleanup()
}

func (app *Application) cleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down bridge: %w", err)
	}
	log.Info("bridge stopped")
	return nil
}

func (app *Application) handleSignals(sigChan chan os.Signal) {
	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		app.cancel()
	case <-app.ctx.Done():
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
