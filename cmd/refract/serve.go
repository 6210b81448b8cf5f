package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/refract/refract-studio/internal/api"
	"github.com/refract/refract-studio/internal/config"
	"github.com/refract/refract-studio/internal/db"
	"github.com/refract/refract-studio/internal/editor"
	"github.com/refract/refract-studio/internal/logging"
	"github.com/refract/refract-studio/internal/media"
	"github.com/refract/refract-studio/internal/playback"
	"github.com/refract/refract-studio/internal/project"
	"github.com/refract/refract-studio/internal/ui"
	"github.com/refract/refract-studio/internal/watcher"
)

const (
	deviceIDKey     = "device_id"
	shutdownTimeout = 10 * time.Second
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var headless bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editing server (and the tray icon unless headless)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runServe(cfg, ctx.logger, headless || cfg.Headless(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "Do not show the system tray icon")
	return cmd
}

func runServe(cfg *config.AppConfig, logger *slog.Logger, headless bool, out io.Writer) error {
	startTime := time.Now()

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MediaDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another refract server is already using %s", cfg.DataDir())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release lock", "error", err)
		}
	}()

	logger.Info("starting refract studio", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := project.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	printBanner(out, cfg.Port(), authToken, deviceID)

	projects := project.NewService(repo, logging.WithComponent(logger, "projects"))
	prober := media.NewFFProbe(cfg.Editor().ProbeTimeout(), logger)

	manager, err := editor.NewManager(projects, prober, editor.SettingsFromConfig(cfg.Editor()), logging.WithComponent(logger, "editor"))
	if err != nil {
		return fmt.Errorf("failed to create editor: %w", err)
	}
	defer manager.CloseAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configWatcher := watcher.NewFileWatcher(0, logger)
	configWatcher.OnChange(reloadEditorDefaults(manager, logger))
	if err := configWatcher.Watch(ctx, cfg.ConfigPath()); err != nil {
		logger.Warn("config file changes will not be picked up", "error", err)
	}
	defer configWatcher.Stop()

	apiServer := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		Projects:    projects,
		Editor:      manager,
		MediaServer: playback.NewServer(logger),
		Repository:  repo,
		Logger:      logger,
		StartTime:   startTime,
		DeviceID:    deviceID,
		MediaDir:    cfg.MediaDir(),
	})

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
			quit()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	var tray *ui.Tray
	if headless {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Stats:     trayStats{projects: projects, manager: manager},
			Logger:    logging.WithComponent(logger, "tray"),
			Addr:      apiServer.Addr(),
			StartedAt: startTime,
			OnQuit:    quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if tray != nil {
		tray.Quit()
	}

	logger.Info("shutdown complete")
	return nil
}

// reloadEditorDefaults applies the [editor] section of a changed config file
// to sessions opened afterwards. A deleted file restores the defaults; an
// invalid one is ignored.
func reloadEditorDefaults(manager *editor.Manager, logger *slog.Logger) func(path string, event watcher.EventType) {
	return func(path string, event watcher.EventType) {
		ed := config.DefaultEditor()
		if event != watcher.EventDelete {
			f, _, err := config.LoadFile(path)
			if err == nil {
				err = f.Validate()
			}
			if err != nil {
				logger.Warn("ignoring invalid config change", "path", path, "error", err)
				return
			}
			ed = f.Editor
		}

		manager.ApplyDefaults(editor.SettingsFromConfig(ed))
		logger.Info("editor defaults reloaded", "path", path, "event", event.String())
	}
}

type configStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

func ensureDeviceID(repo configStore) (string, error) {
	return ensureRandomValue(repo, deviceIDKey, 16)
}

func ensureAuthToken(repo configStore) (string, error) {
	return ensureRandomValue(repo, api.AuthTokenKey, 32)
}

// ensureRandomValue returns the stored value for key, generating and storing
// a hex string of n random bytes on first use.
func ensureRandomValue(repo configStore, key string, n int) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, key)
	if err == nil && existing != "" {
		return existing, nil
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)

	if err := repo.SetConfig(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}

func printBanner(out io.Writer, port int, authToken, deviceID string) {
	const width = 78
	rule := strings.Repeat("═", width+2)
	line := func(text string) {
		fmt.Fprintf(out, "║ %-*s ║\n", width, text)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "╔"+rule+"╗")
	line("REFRACT STUDIO v" + config.Version)
	fmt.Fprintln(out, "╠"+rule+"╣")
	line(fmt.Sprintf("API URL:    http://127.0.0.1:%d", port))
	line("Auth Token: " + authToken)
	line("Device ID:  " + deviceID)
	fmt.Fprintln(out, "╚"+rule+"╝")
	fmt.Fprintln(out)
}

// trayStats feeds the tray menu counters.
type trayStats struct {
	projects *project.Service
	manager  *editor.Manager
}

func (s trayStats) ProjectCount(ctx context.Context) (int, error) {
	return s.projects.Count(ctx)
}

func (s trayStats) SessionCount() int {
	return s.manager.Len()
}

func (s trayStats) PlayingCount() int {
	return s.manager.PlayingCount()
}
