package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sparselabs/ragserve/internal/cache"
	"github.com/sparselabs/ragserve/internal/config"
	"github.com/sparselabs/ragserve/internal/embedding"
	"github.com/sparselabs/ragserve/internal/parser"
	"github.com/sparselabs/ragserve/internal/rag"
	"github.com/sparselabs/ragserve/internal/vectorstore/qdrant"
)

var (
	loadDirectory      string
	loadChunkSize      int
	loadQdrantURL      string
	loadCollection     string
	loadCacheDir       string
	loadCacheChunkSize int
	loadRemote         bool
	loadRemoteEU       bool
	loadAvgDocLen      float64
)

func newLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Ingest a directory of documents into the vector index",
		Long: `Parse every supported file in a directory, split the text into
chunks, embed each chunk as a BM25 sparse vector and upload the result
into the configured Qdrant collection.

Binary formats (.pdf, .docx) are extracted through a local content
cache so re-runs skip extraction work. With --remote the directory is
parsed through LlamaCloud batch processing instead.

Examples:
  ragserve load --directory ./docs
  ragserve load --directory ./docs --chunk-size 2048
  ragserve load --directory ./docs --remote`,
		RunE: runLoad,
	}

	cmd.Flags().StringVarP(&loadDirectory, "directory", "d", "", "directory of documents to ingest (required)")
	cmd.Flags().IntVar(&loadChunkSize, "chunk-size", 0, "chunk size in bytes (default 1024)")
	cmd.Flags().StringVar(&loadQdrantURL, "qdrant-url", "", "Qdrant server URL (default from QDRANT_URL)")
	cmd.Flags().StringVar(&loadCollection, "collection-name", "", "collection name (default from COLLECTION_NAME)")
	cmd.Flags().StringVar(&loadCacheDir, "cache-dir", "", "content cache directory")
	cmd.Flags().IntVar(&loadCacheChunkSize, "cache-chunk-size", 0, "cache write chunk size in bytes")
	cmd.Flags().BoolVar(&loadRemote, "remote", false, "parse the directory through LlamaCloud instead of locally")
	cmd.Flags().BoolVar(&loadRemoteEU, "eu", false, "use the LlamaCloud EU endpoint with --remote")
	cmd.Flags().Float64Var(&loadAvgDocLen, "avgdl", 0, "BM25 average document length (must match across load and serve)")

	if err := cmd.MarkFlagRequired("directory"); err != nil {
		panic(err)
	}

	return cmd
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyLoadOverrides(cmd, cfg)

	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	if loadRemote && cfg.Ingest.LlamaCloudAPIKey == "" {
		return fmt.Errorf("missing required settings: LLAMA_CLOUD_API_KEY")
	}

	store, err := qdrant.New(cfg.Store.URL, cfg.Store.APIKey, cfg.Store.Collection)
	if err != nil {
		return fmt.Errorf("connect to vector store: %w", err)
	}

	var source parser.DocumentSource
	if loadRemote {
		source = parser.NewRemote(loadDirectory, cfg.Ingest.LlamaCloudAPIKey, parser.RemoteOptions{EU: loadRemoteEU})
	} else {
		source = parser.NewLocal(loadDirectory, cache.New(cfg.Cache.Dir, cfg.Cache.ChunkSize))
	}

	embedder := embedding.NewBM25(cfg.Ingest.AvgDocLen)
	pipeline := rag.NewPipeline(source, embedder, store, cfg.Ingest.ChunkSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return pipeline.Run(ctx)
}

func applyLoadOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flag("chunk-size").Changed {
		cfg.Ingest.ChunkSize = loadChunkSize
	}
	if cmd.Flag("qdrant-url").Changed {
		cfg.Store.URL = loadQdrantURL
	}
	if cmd.Flag("collection-name").Changed {
		cfg.Store.Collection = loadCollection
	}
	if cmd.Flag("cache-dir").Changed {
		cfg.Cache.Dir = loadCacheDir
	}
	if cmd.Flag("cache-chunk-size").Changed {
		cfg.Cache.ChunkSize = loadCacheChunkSize
	}
	if cmd.Flag("avgdl").Changed {
		cfg.Ingest.AvgDocLen = loadAvgDocLen
	}
}
