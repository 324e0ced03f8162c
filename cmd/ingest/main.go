package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mahirlabib/physics-rag/internal/bootstrap"
	"github.com/mahirlabib/physics-rag/internal/config"
)

func main() {
	forceReset := flag.Bool("force-reset", false, "drop the collection and re-index the corpus from scratch")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	report := app.Ingestor.Ingest(ctx, *forceReset)
	if !report.Success {
		log.Fatalf("ingest failed: %s", report.Message)
	}
	log.Printf("ingest done: %s (collection=%s documents=%d)", report.Message, report.Collection, report.Documents)
}
