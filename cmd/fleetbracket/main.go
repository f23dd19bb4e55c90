package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/fleet-bracket/internal/app"
	"github.com/DoyleJ11/fleet-bracket/internal/catalog"
	"github.com/DoyleJ11/fleet-bracket/internal/config"
	"github.com/DoyleJ11/fleet-bracket/internal/lobby"
	"github.com/DoyleJ11/fleet-bracket/internal/tui"
)

var (
	envFile     string
	sourcesFile string
	listenAddr  string
	verbose     bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fleetbracket",
	Short: "Smash or pass through the fleet, then crown a favourite in a bracket",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if sourcesFile != "" {
			sources, err := catalog.LoadSources(sourcesFile)
			if err != nil {
				return err
			}
			cfg.Sources = sources
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}
		var err error
		logger, err = cfg.Logger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Serve(ctx, cfg, logger)
	},
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a session in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		// the terminal owns stdout; logs go nowhere unless asked for
		logger = zap.NewNop()
		if verbose {
			zc := zap.NewDevelopmentConfig()
			zc.OutputPaths = []string{"fleetbracket.log"}
			var err error
			if logger, err = zc.Build(); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		loader := app.NewLoader(ctx, cfg, logger)
		lb := lobby.NewLobby(ctx, app.LobbyOptions(cfg, loader, logger))
		defer func() {
			cancel()
			select {
			case <-lb.Done():
			case <-time.After(time.Second):
			}
		}()

		m, err := tui.New(lb)
		if err != nil {
			return err
		}
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to read before the environment")
	rootCmd.PersistentFlags().StringVar(&sourcesFile, "sources", "", "YAML list of catalog mirrors (overrides SOURCES_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides LISTEN_ADDR)")

	rootCmd.AddCommand(serveCmd, playCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
