// ABOUTME: Application bootstrap shared by the CLI commands
// ABOUTME: Wires the kv store, queue, remote client, generator, monitor, session, and engine
package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"

	"github.com/presencehq/radar/config"
	"github.com/presencehq/radar/kv"
	"github.com/presencehq/radar/models"
	"github.com/presencehq/radar/remote"
	"github.com/presencehq/radar/report"
	"github.com/presencehq/radar/session"
	radarsync "github.com/presencehq/radar/sync"
)

// probeInterval is how often the connectivity monitor polls the store.
const probeInterval = 15 * time.Second

// App holds the wired application components.
type App struct {
	Config  *config.Config
	Store   *kv.Store
	Queue   *radarsync.Queue
	Remote  *remote.Client
	Monitor *radarsync.Monitor
	Session *session.Session
	Engine  *radarsync.Engine
}

// BuildApp constructs the full component graph from config. The caller
// owns Close.
func BuildApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.UserID == "" {
		return nil, fmt.Errorf("no user configured; run 'radar login' first")
	}

	store, err := kv.Open(cfg.StoreDir())
	if err != nil {
		return nil, err
	}

	queue, err := radarsync.LoadQueue(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	var ts oauth2.TokenSource
	if cfg.Token != "" {
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	}
	client := remote.NewClient(cfg.RemoteURL, cfg.UserID, ts)

	var generator radarsync.ReportGenerator
	if cfg.GeminiAPIKey != "" {
		generator, err = report.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			store.Close()
			return nil, err
		}
	} else {
		generator = unavailableGenerator{}
	}

	monitor := radarsync.NewMonitor(false)
	sess := session.New(store, queue, client, generator, monitor, cfg.UserID)
	if err := sess.Load(); err != nil {
		store.Close()
		return nil, err
	}
	engine := radarsync.NewEngine(client, generator, sess, queue, monitor, cfg.UserID)

	return &App{
		Config:  cfg,
		Store:   store,
		Queue:   queue,
		Remote:  client,
		Monitor: monitor,
		Session: sess,
		Engine:  engine,
	}, nil
}

// StartMonitoring launches the probe loop and hooks reconnects to the
// reconciliation engine. Runs until ctx is done.
func (a *App) StartMonitoring(ctx context.Context) {
	a.Monitor.Subscribe(a.Engine.HandleConnectivityChange)
	go a.Monitor.Probe(ctx, a.Remote.HealthURL(), probeInterval)
}

// Close releases the durable store.
func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		log.Printf("failed to close kv store: %v", err)
	}
}

// unavailableGenerator fails queued creates until an API key is
// configured, leaving them queued for a later drain.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	return nil, fmt.Errorf("report generation requires RADAR_GEMINI_API_KEY")
}
