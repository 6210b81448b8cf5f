// Package ui provides the optional system tray menu.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"
)

const refreshInterval = 5 * time.Second

// Stats supplies the counters shown in the menu.
type Stats interface {
	ProjectCount(ctx context.Context) (int, error)
	SessionCount() int
	PlayingCount() int
}

type Tray struct {
	stats     Stats
	logger    *slog.Logger
	addr      string
	startedAt time.Time

	statusItem   *systray.MenuItem
	projectsItem *systray.MenuItem
	sessionsItem *systray.MenuItem

	mu sync.Mutex

	onQuit func()
	stopCh chan struct{}
}

type TrayConfig struct {
	Stats     Stats
	Logger    *slog.Logger
	Addr      string
	StartedAt time.Time
	OnQuit    func()
}

func NewTray(cfg TrayConfig) *Tray {
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	return &Tray{
		stats:     cfg.Stats,
		logger:    cfg.Logger,
		addr:      cfg.Addr,
		startedAt: startedAt,
		onQuit:    cfg.OnQuit,
		stopCh:    make(chan struct{}),
	}
}

// Run blocks on the platform event loop until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Refract")
	systray.SetTooltip("Refract Studio on " + t.addr)

	t.statusItem = systray.AddMenuItem(t.statusTitle(), "Server status")
	t.statusItem.Disable()

	t.projectsItem = systray.AddMenuItem("Projects: 0", "Stored projects")
	t.projectsItem.Disable()

	t.sessionsItem = systray.AddMenuItem("Open editors: 0", "Timelines held in memory")
	t.sessionsItem.Disable()

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Refract Studio")

	t.refresh()

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			case <-t.stopCh:
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) statusTitle() string {
	return fmt.Sprintf("Running on %s, started %s", t.addr, humanize.Time(t.startedAt))
}

func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.statusItem.SetTitle(t.statusTitle())
	if t.stats == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if n, err := t.stats.ProjectCount(ctx); err != nil {
		t.logger.Warn("tray: failed to count projects", "error", err)
	} else {
		t.projectsItem.SetTitle(fmt.Sprintf("Projects: %d", n))
	}
	t.sessionsItem.SetTitle(editorsTitle(t.stats.SessionCount(), t.stats.PlayingCount()))
}

func (t *Tray) Quit() {
	t.mu.Lock()
	select {
	case <-t.stopCh:
	default:
		close(t.stopCh)
	}
	t.mu.Unlock()
	systray.Quit()
}

func editorsTitle(open, playing int) string {
	if playing == 0 {
		return fmt.Sprintf("Open editors: %d", open)
	}
	return fmt.Sprintf("Open editors: %d (%d playing)", open, playing)
}
