package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/logger"
	"github.com/teranos/framemark/server"
	"github.com/teranos/framemark/workspace"
)

// ServeCmd starts the annotation server.
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the annotation server",
	Long: `Start the HTTP and WebSocket server the annotation UI talks to.

Clients send commands to /ws or POST /api/command and receive the workspace
state after every change. With --dir the workspace is opened before the
server starts listening.

Examples:
  framemark serve
  framemark serve --dir ./frames --annotation hallway.json
  framemark serve --port 9000`,
	RunE: runServe,
}

var (
	serveDir        string
	serveAnnotation string
	servePort       int
	serveDBPath     string
)

func init() {
	ServeCmd.Flags().StringVar(&serveDir, "dir", "", "Workspace directory to open at startup")
	ServeCmd.Flags().StringVar(&serveAnnotation, "annotation", "", "Annotation file to open with --dir")
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Custom database path (overrides database.path)")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	port := cfg.GetServerPort()
	if servePort != 0 {
		port = servePort
	}
	dbPath := serveDBPath
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}

	hist, closeHistory, err := openHistory(cfg, dbPath)
	if err != nil {
		return err
	}
	defer closeHistory()

	svc, err := newService(cfg, hist)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.New(svc, server.Options{
		AllowedOrigins:  cfg.GetServerAllowedOrigins(),
		History:         hist,
		PersistSettings: true,
	})

	if serveDir != "" {
		if err := svc.Init(context.Background(), workspace.Config{Dir: serveDir, Annotation: serveAnnotation}); err != nil {
			return errors.Wrapf(err, "failed to open workspace %s", serveDir)
		}
	}

	if watcher := watchUserConfig(srv); watcher != nil {
		defer watcher.Stop()
	}

	printStartupBanner(cfg, verbosity, dbPath, hist != nil)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(port, func(addr string) {
			pterm.Success.Printf("Listening on http://%s\n", addr)
		})
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-sigChan:
		pterm.Info.Println("\nShutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop()
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return errors.Wrap(err, "shutdown error")
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("\nForce shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}

// watchUserConfig reloads annotation settings when ~/.framemark/am.toml or
// the UI settings file changes.
func watchUserConfig(srv *server.Server) *am.ConfigWatcher {
	dir := am.UserConfigDir()
	if dir == "" {
		return nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}

	watcher, err := am.NewConfigWatcher(filepath.Join(dir, "am.toml"), am.GetUIConfigPath())
	if err != nil {
		logger.Warnw("Config files not watched", logger.FieldPath, dir, logger.FieldError, err.Error())
		return nil
	}
	watcher.OnReload(srv.ApplyConfig)
	watcher.Start()
	am.SetGlobalWatcher(watcher)
	return watcher
}

// printStartupBanner prints the user-facing startup summary
func printStartupBanner(cfg *am.Config, verbosity int, dbPath string, historyOn bool) {
	pterm.DefaultHeader.WithFullWidth().Println("framemark")

	historyLine := "off"
	if historyOn {
		historyLine = dbPath
	}
	rows := pterm.TableData{
		{"Version", versionLine()},
		{"Verbosity", logger.LevelName(verbosity)},
		{"CameraTool", cfg.CameraTool.Path},
		{"Mode", cfg.Annotation.Mode},
		{"History", historyLine},
	}
	if serveDir != "" {
		rows = append(rows, []string{"Workspace", serveDir})
	}
	_ = pterm.DefaultTable.WithData(rows).Render()
	pterm.Info.Println("Press Ctrl+C to stop")
}
