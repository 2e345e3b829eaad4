package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"timely/internal/api"
	"timely/internal/history"
	"timely/internal/lifecycle"
	"timely/internal/trigger"
	"timely/internal/work"
)

func main() {
	var (
		addr    = flag.String("addr", ":8080", "HTTP bind address")
		dbPath  = flag.String("db", "timely.db", "SQLite fire-history path (empty to disable)")
		workers = flag.Int("workers", 4, "max concurrent work invocations (0 = synchronous)")
		debug   = flag.Bool("debug", false, "enable pprof endpoints")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	var rec history.Recorder
	if *dbPath != "" {
		dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", *dbPath)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("open db")
		}
		defer db.Close()
		db.SetMaxOpenConns(1) // SQLite single writer
		if err := history.EnsureSchema(db); err != nil {
			log.Fatal().Err(err).Msg("ensure schema")
		}
		rec = history.NewSQLiteRecorder(db)
	}

	engine := trigger.NewCron()
	engine.Start()

	mgr := lifecycle.NewManager(engine,
		lifecycle.WithHistory(rec),
		lifecycle.WithWorkers(*workers),
	)

	srv := &http.Server{Addr: *addr, Handler: api.NewServerWithDebug(mgr, rec, work.Default(), *debug)}
	go func() {
		log.Info().Str("addr", *addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")

	select {
	case <-engine.Stop().Done():
	case <-time.After(5 * time.Second):
		log.Warn().Msg("timed out waiting for running work")
	}
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
}
