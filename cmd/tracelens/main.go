package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tracelens/tracelens/internal/aggregate"
	"github.com/tracelens/tracelens/internal/analysis"
	"github.com/tracelens/tracelens/internal/archive"
	"github.com/tracelens/tracelens/internal/flow"
	"github.com/tracelens/tracelens/internal/loader"
	"github.com/tracelens/tracelens/internal/server"
	"github.com/tracelens/tracelens/internal/session"
)

func main() {
	port := flag.Int("port", 8090, "HTTP port to listen on")
	token := flag.String("token", "", "API access token (empty disables auth)")
	sessionTTL := flag.Duration("session-ttl", 24*time.Hour, "Idle time before a trace session is dropped")
	query := flag.String("q", "", "Filter query (one-shot mode)")
	flowBy := flag.String("flow", "", "Comma-separated key fields for flow grouping (one-shot mode)")
	agg := flag.String("agg", "", "Aggregation as op:field, e.g. avg:durationMicros (one-shot mode)")
	stats := flag.Bool("stats", false, "Print the trace summary (one-shot mode)")
	limit := flag.Int("limit", 0, "Maximum events to print, 0 = all (one-shot mode)")
	export := flag.String("export", "", "Write matching events to a snapshot file (one-shot mode)")
	flag.Parse()

	if files := flag.Args(); len(files) > 0 {
		runOnce(files, *query, *flowBy, *agg, *stats, *limit, *export)
		return
	}
	serve(*port, *token, *sessionTTL)
}

// runOnce analyzes the given trace files and prints the result as JSON.
func runOnce(files []string, query, flowBy, agg string, stats bool, limit int, export string) {
	batch, err := loadInputs(files)
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}
	if batch.Skipped > 0 {
		log.Printf("Skipped %d malformed lines", batch.Skipped)
	}
	tr := analysis.New(batch)

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	switch {
	case agg != "":
		op, field, _ := strings.Cut(agg, ":")
		res, err := aggregate.Run(tr.Search(query, 0), aggregate.Request{Op: op, Field: field})
		if err != nil {
			log.Fatalf("%v", err)
		}
		out.Encode(res)

	case flowBy != "":
		keyFields := strings.Split(flowBy, ",")
		for i := range keyFields {
			keyFields[i] = strings.TrimSpace(keyFields[i])
		}
		out.Encode(flow.Build(tr.Search(query, 0), keyFields))

	case stats:
		out.Encode(tr.Summarize())

	default:
		out.Encode(tr.Search(query, limit))
	}

	if export != "" {
		w, err := archive.NewWriter()
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		if err := w.WriteSnapshot(export, tr.Search(query, 0)); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		log.Printf("Snapshot written to %s", export)
	}
}

// loadInputs reads plain or zstd-compressed JSONL files, plus .trc
// snapshots written by -export or the /archive endpoint.
func loadInputs(files []string) (*loader.Batch, error) {
	var plain, snapshots []string
	for _, f := range files {
		if strings.HasSuffix(f, ".trc") {
			snapshots = append(snapshots, f)
		} else {
			plain = append(plain, f)
		}
	}

	batch, err := loader.ReadFiles(plain)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return batch, nil
	}

	r, err := archive.NewReader()
	if err != nil {
		return nil, err
	}
	for _, path := range snapshots {
		events, _, err := r.ReadSnapshot(path)
		if err != nil {
			return nil, err
		}
		restored := loader.FromEvents(events)
		batch.Events = append(batch.Events, restored.Events...)
		for name, count := range restored.Fields {
			batch.Fields[name] += count
		}
	}
	return batch, nil
}

func serve(port int, token string, sessionTTL time.Duration) {
	log.Println("tracelens server starting...")

	cfg := server.Config{
		Addr: fmt.Sprintf(":%d", port),
	}
	if token != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Token hash failed: %v", err)
		}
		cfg.TokenHash = hash
	}

	sessions := session.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessions.StartCleanupLoop(ctx, 10*time.Minute, sessionTTL)

	srv := server.New(cfg, sessions)

	go func() {
		log.Printf("Listening on %s", cfg.Addr)
		if err := srv.Start(); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal: %v. Shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("tracelens exited gracefully.")
}
