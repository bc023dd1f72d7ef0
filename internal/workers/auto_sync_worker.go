package workers

import (
	"context"
	"log"
	"time"

	"github.com/Aziraphal/smartportfolio/internal/models"
	"github.com/Aziraphal/smartportfolio/internal/platforms"
	"github.com/Aziraphal/smartportfolio/internal/projectsync"
)

// DueSource lists credentials whose auto-sync interval has elapsed.
type DueSource interface {
	DueCredentials(ctx context.Context, now time.Time, limit int) ([]models.PlatformCredential, error)
}

type Syncer interface {
	SyncPortfolio(ctx context.Context, req projectsync.SyncRequest) (projectsync.SyncResponse, error)
}

// AutoSyncWorker re-imports portfolios whose auto-sync credentials are due.
type AutoSyncWorker struct {
	Store     DueSource
	Sync      Syncer
	Interval  time.Duration // how often to look for due credentials (default: 15m)
	BatchSize int           // max credentials per pass (default: 100)
	Logger    *log.Logger

	now func() time.Time
}

func (w *AutoSyncWorker) EnsureDefaults() {
	if w.Interval <= 0 {
		w.Interval = 15 * time.Minute
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 100
	}
	if w.Logger == nil {
		w.Logger = log.Default()
	}
	if w.now == nil {
		w.now = func() time.Time { return time.Now().UTC() }
	}
}

// Start runs RunOnce on every tick until ctx is canceled.
func (w *AutoSyncWorker) Start(ctx context.Context) {
	w.EnsureDefaults()
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Logger.Printf("[AutoSyncWorker] started (interval=%s batch=%d)", w.Interval, w.BatchSize)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Printf("[AutoSyncWorker] stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce syncs every portfolio with at least one due credential, restricted
// to the due platforms. It returns the number of portfolios attempted.
func (w *AutoSyncWorker) RunOnce(ctx context.Context) int {
	w.EnsureDefaults()
	if w.Store == nil || w.Sync == nil {
		return 0
	}
	due, err := w.Store.DueCredentials(ctx, w.now(), w.BatchSize)
	if err != nil {
		w.Logger.Printf("[AutoSyncWorker] error: %v", err)
		return 0
	}

	type batch struct {
		userID    string
		platforms []platforms.Platform
	}
	order := make([]string, 0)
	byPortfolio := make(map[string]*batch)
	for _, c := range due {
		b := byPortfolio[c.PortfolioID]
		if b == nil {
			b = &batch{userID: c.UserID}
			byPortfolio[c.PortfolioID] = b
			order = append(order, c.PortfolioID)
		}
		b.platforms = append(b.platforms, c.Platform)
	}

	for _, id := range order {
		if ctx.Err() != nil {
			break
		}
		b := byPortfolio[id]
		resp, err := w.Sync.SyncPortfolio(ctx, projectsync.SyncRequest{
			UserID:      b.userID,
			PortfolioID: id,
			Platforms:   b.platforms,
			Force:       true,
		})
		if err != nil {
			w.Logger.Printf("[AutoSyncWorker] sync failed portfolioId=%s err=%v", id, err)
			continue
		}
		if resp.TotalImported > 0 || len(resp.Errors) > 0 {
			w.Logger.Printf("[AutoSyncWorker] synced portfolioId=%s imported=%d errors=%d", id, resp.TotalImported, len(resp.Errors))
		}
	}
	return len(order)
}
