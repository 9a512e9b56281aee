package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/PabloGalante/farum-engine/internal/adapters/events"
	httpadapter "github.com/PabloGalante/farum-engine/internal/adapters/http"
	"github.com/PabloGalante/farum-engine/internal/adapters/llm"
	"github.com/PabloGalante/farum-engine/internal/adapters/sentiment"
	firestorestore "github.com/PabloGalante/farum-engine/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/farum-engine/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/farum-engine/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/farum-engine/internal/app/classify"
	"github.com/PabloGalante/farum-engine/internal/app/conversation"
	"github.com/PabloGalante/farum-engine/internal/app/journal"
	"github.com/PabloGalante/farum-engine/internal/app/progression"
	"github.com/PabloGalante/farum-engine/internal/config"
	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

func main() {
	if err := run(); err != nil {
		observability.Logger().Error("farum api stopped", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	persister domain.Persister
	streaks   domain.StreakStore
	progress  domain.ProgressStore
	journal   domain.JournalStore
	closer    io.Closer
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	// LLM: mock or Vertex
	var llmClient domain.LLMClient
	if cfg.MockLLM() {
		log.Info("using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Info("using Vertex LLM client", "model", cfg.ModelName, "location", cfg.GCPLocation)
		llmClient, err = llm.NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			return err
		}
	}

	// Sentiment: local heuristic or OpenAI
	var sentimentClient domain.SentimentAnalyzer
	if cfg.SentimentBackend == "openai" {
		log.Info("using OpenAI sentiment", "model", cfg.OpenAIModel)
		sentimentClient = sentiment.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	if st.closer != nil {
		defer st.closer.Close()
	}

	catalog := progression.DefaultCatalog()
	if cfg.AchievementsFile != "" {
		catalog, err = progression.LoadCatalog(cfg.AchievementsFile)
		if err != nil {
			return err
		}
	}

	// subscribers must outlive the signal: sessions ended during shutdown
	// still publish session.ended
	busCtx := context.WithoutCancel(ctx)
	bus := events.NewBus()
	defer bus.Close()
	if err := events.LogEvents(busCtx, bus, events.AllTopics...); err != nil {
		return err
	}

	pool := pond.NewPool(cfg.PersistWorkers)
	defer pool.StopAndWait()

	analyzer := classify.NewAnalyzer(sentimentClient, cfg.LanguageCode)

	manager := conversation.NewManager(conversation.ManagerDeps{
		Analyzer:  analyzer,
		Persister: st.persister,
		Pool:      pool,
		Events:    bus,
	})
	convSvc := conversation.NewService(manager, llmClient)

	progressSvc := progression.NewService(
		progression.NewStreakTracker(st.streaks, domain.SystemClock),
		progression.NewLedger(st.progress, catalog, bus, domain.SystemClock),
		catalog,
	)
	journalSvc := journal.NewService(st.journal, analyzer, progressSvc, bus, domain.SystemClock)

	if err := subscribeSessionRewards(busCtx, bus, progressSvc); err != nil {
		return err
	}

	reaper, err := conversation.NewReaper(manager, cfg.SessionIdleTimeout, cfg.ReaperSchedule)
	if err != nil {
		return err
	}
	reaper.Start()
	defer reaper.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(convSvc, progressSvc, journalSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("farum api listening", "port", cfg.Port, "mode", cfg.Mode, "storage", cfg.StorageBackend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	endOpenSessions(shutdownCtx, manager, progressSvc)
	return nil
}

// subscribeSessionRewards credits chat_session XP for every finished conversation.
func subscribeSessionRewards(ctx context.Context, bus *events.Bus, progress *progression.Service) error {
	return bus.Subscribe(ctx, domain.TopicSessionEnded, func(ctx context.Context, env events.Envelope) error {
		var note domain.SessionNote
		if err := json.Unmarshal(env.Payload, &note); err != nil {
			return err
		}
		_, err := progress.RewardSession(ctx, note)
		return err
	})
}

// endOpenSessions ends whatever is still open, waits for it to be persisted
// and credits it directly. RewardSession is idempotent per session, so a
// concurrent delivery of the same session.ended event is harmless.
func endOpenSessions(ctx context.Context, manager *conversation.Manager, progress *progression.Service) {
	log := observability.LoggerFromContext(ctx)
	for _, res := range manager.EndIdle(ctx, 0) {
		if err := res.Wait(); err != nil {
			log.Warn("session not persisted on shutdown", "session_id", res.Session.ID, "error", err)
		}
		if _, err := progress.RewardSession(ctx, res.Note); err != nil {
			log.Warn("session not rewarded on shutdown", "session_id", res.Session.ID, "error", err)
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	log := observability.Logger()

	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		fs, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, err
		}
		return &stores{persister: fs, streaks: fs, progress: fs, journal: fs, closer: fs}, nil

	case "sqlite":
		log.Info("using SQLite storage", "path", cfg.SQLitePath)
		db, err := sqlitestore.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{persister: db, streaks: db, progress: db, journal: db, closer: db}, nil

	default:
		log.Info("using in-memory storage")
		return &stores{
			persister: memstore.NewPersister(),
			streaks:   memstore.NewStreakStore(),
			progress:  memstore.NewProgressStore(),
			journal:   memstore.NewJournalStore(),
		}, nil
	}
}
