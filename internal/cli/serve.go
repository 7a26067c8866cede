package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sparselabs/ragserve/internal/api"
	"github.com/sparselabs/ragserve/internal/config"
	"github.com/sparselabs/ragserve/internal/embedding"
	"github.com/sparselabs/ragserve/internal/llm"
	"github.com/sparselabs/ragserve/internal/rag"
	"github.com/sparselabs/ragserve/internal/vectorstore/qdrant"
)

var (
	serveHost       string
	servePort       int
	serveQdrantURL  string
	serveCollection string
	serveRateLimit  int
	serveCORSOrigin string
	serveAvgDocLen  float64
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query endpoint over a populated collection",
		Long: `Start the HTTP server. Incoming queries are embedded with the same
BM25 parameters used at load time, matched against the collection, and
answered by an LLM prompted with the retrieved passages.

The server refuses to start when the collection is missing or empty.

Examples:
  ragserve serve
  ragserve serve --port 9000 --rate-limit-per-minute 30`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from SERVER_HOST)")
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from SERVER_PORT)")
	cmd.Flags().StringVar(&serveQdrantURL, "qdrant-url", "", "Qdrant server URL (default from QDRANT_URL)")
	cmd.Flags().StringVar(&serveCollection, "collection-name", "", "collection name (default from COLLECTION_NAME)")
	cmd.Flags().IntVar(&serveRateLimit, "rate-limit-per-minute", 0, "per-client request budget per minute")
	cmd.Flags().StringVar(&serveCORSOrigin, "cors", "", "allowed CORS origin (empty allows all)")
	cmd.Flags().Float64Var(&serveAvgDocLen, "avgdl", 0, "BM25 average document length (must match across load and serve)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyServeOverrides(cmd, cfg)

	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	store, err := qdrant.New(cfg.Store.URL, cfg.Store.APIKey, cfg.Store.Collection)
	if err != nil {
		return fmt.Errorf("connect to vector store: %w", err)
	}

	embedder := embedding.NewBM25(cfg.Ingest.AvgDocLen)
	gateway := llm.NewGateway(cfg.LLM.OpenAIKey, cfg.LLM.AnthropicKey, cfg.LLM.MaxRetries)
	orchestrator := rag.NewOrchestrator(embedder, store, gateway)

	router := api.NewRouter(cfg, orchestrator, store)
	server := api.NewServer(cfg, router, store)

	return server.Run(context.Background())
}

func applyServeOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flag("host").Changed {
		cfg.Server.Host = serveHost
	}
	if cmd.Flag("port").Changed {
		cfg.Server.Port = servePort
	}
	if cmd.Flag("qdrant-url").Changed {
		cfg.Store.URL = serveQdrantURL
	}
	if cmd.Flag("collection-name").Changed {
		cfg.Store.Collection = serveCollection
	}
	if cmd.Flag("rate-limit-per-minute").Changed {
		cfg.Serve.RateLimitPerMinute = serveRateLimit
	}
	if cmd.Flag("cors").Changed {
		cfg.Serve.CORSOrigin = serveCORSOrigin
	}
	if cmd.Flag("avgdl").Changed {
		cfg.Ingest.AvgDocLen = serveAvgDocLen
	}
}
