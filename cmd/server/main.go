// Command server wires the rental-application intake core and serves its
// HTTP API. Postgres, Redis and Kafka are all optional: without a database
// URL the core runs on in-memory stores, which is enough for local
// development and demos.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	aievalclient "leaselab/internal/aieval/client"
	aievalservice "leaselab/internal/aieval/service"
	aievalstore "leaselab/internal/aieval/store"
	applicantservice "leaselab/internal/applicant/service"
	applicantstore "leaselab/internal/applicant/store"
	documentservice "leaselab/internal/document/service"
	documentstore "leaselab/internal/document/store"
	"leaselab/internal/history/publisher"
	historyservice "leaselab/internal/history/service"
	historystore "leaselab/internal/history/store"
	leadservice "leaselab/internal/lead/service"
	leadstore "leaselab/internal/lead/store"
	noteservice "leaselab/internal/note/service"
	notestore "leaselab/internal/note/store"
	"leaselab/internal/platform/config"
	"leaselab/internal/platform/httpserver"
	"leaselab/internal/platform/logger"
	"leaselab/internal/platform/metrics"
	"leaselab/internal/platform/postgres"
	redisplatform "leaselab/internal/platform/redis"
	"leaselab/internal/storageref"
	transitionservice "leaselab/internal/transition/service"
	transitionstore "leaselab/internal/transition/store"
	transport "leaselab/internal/transport/http"
	"leaselab/pkg/idgen"
	"leaselab/pkg/tx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	leads       leadservice.LeadStore
	applicants  applicantservice.ApplicantStore
	documents   documentservice.DocumentStore
	notes       noteservice.NoteStore
	transitions transitionservice.TransitionStore
	history     historyservice.Store
	evaluations aievalservice.ResultStore
	cascades    []leadservice.Cascade
	runner      tx.Runner

	leadTransitions transitionservice.LeadStore
	leadScores      aievalservice.LeadStore
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	ids := idgen.NewUUID()

	st, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	historyOpts := []historyservice.Option{historyservice.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := publisher.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		historyOpts = append(historyOpts, historyservice.WithPublisher(kafka))
		log.Info("history kafka publisher enabled", "topic", cfg.KafkaTopic)
	}
	historySvc := historyservice.New(st.history, ids, historyOpts...)

	leadOpts := []leadservice.Option{
		leadservice.WithLogger(log),
		leadservice.WithMetrics(m),
		leadservice.WithRunner(st.runner),
	}
	for _, c := range st.cascades {
		leadOpts = append(leadOpts, leadservice.WithCascade(c))
	}
	leadSvc := leadservice.New(st.leads, historySvc, ids, leadOpts...)

	applicantSvc := applicantservice.New(st.applicants, st.leads, historySvc, ids,
		applicantservice.WithLogger(log))
	documentSvc := documentservice.New(st.documents, st.leads, historySvc, ids,
		documentservice.WithLogger(log))
	noteSvc := noteservice.New(st.notes, ids)
	transitionSvc := transitionservice.New(st.transitions, st.leadTransitions, historySvc, ids,
		transitionservice.WithLogger(log),
		transitionservice.WithMetrics(m),
		transitionservice.WithRunner(st.runner))

	redisClient, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	signer := storageref.New(cfg.Storage.BaseURL, cfg.Storage.SigningSecret, cfg.Storage.URLTTL,
		storageref.WithCache(redisClient),
		storageref.WithLogger(log))

	scorer, err := aievalclient.New(cfg.Scoring.BaseURL, cfg.Scoring.APIKey, cfg.Scoring.Timeout)
	if err != nil {
		return err
	}
	evaluationSvc := aievalservice.New(st.evaluations, scorer, st.leadScores, st.applicants, st.documents, signer,
		aievalservice.WithLogger(log),
		aievalservice.WithMetrics(m))

	api := transport.New(leadSvc, applicantSvc, documentSvc, noteSvc, transitionSvc, evaluationSvc, historySvc, log)
	srv := httpserver.New(cfg.Addr, api.Router())

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStores wires either Postgres-backed or in-memory persistence
// depending on configuration.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, using in-memory stores")
		leads := leadstore.NewInMemory()
		applicants := applicantstore.NewInMemory()
		documents := documentstore.NewInMemory()
		notes := notestore.NewInMemory()
		return stores{
			leads:           leads,
			applicants:      applicants,
			documents:       documents,
			notes:           notes,
			transitions:     transitionstore.NewInMemory(),
			history:         historystore.NewInMemory(),
			evaluations:     aievalstore.NewInMemory(),
			cascades:        []leadservice.Cascade{applicants, documents, notes},
			runner:          tx.NewMemoryRunner(),
			leadTransitions: leads,
			leadScores:      leads,
		}, func() {}, nil
	}

	handle, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, nil, err
	}
	leads := leadstore.NewPostgres(handle)
	applicants := applicantstore.NewPostgres(handle)
	documents := documentstore.NewPostgres(handle)
	notes := notestore.NewPostgres(handle)
	return stores{
		leads:           leads,
		applicants:      applicants,
		documents:       documents,
		notes:           notes,
		transitions:     transitionstore.NewPostgres(handle),
		history:         historystore.NewPostgres(handle),
		evaluations:     aievalstore.NewPostgres(handle),
		cascades:        []leadservice.Cascade{applicants, documents, notes},
		runner:          tx.NewSQLRunner(handle),
		leadTransitions: leads,
		leadScores:      leads,
	}, func() { handle.Close() }, nil
}
