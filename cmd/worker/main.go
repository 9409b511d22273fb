package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"signalhub.app/correlator/common/id"
	"signalhub.app/correlator/common/logger"
	"signalhub.app/correlator/common/otel"
	"signalhub.app/correlator/core/config"
	"signalhub.app/correlator/core/db"
	"signalhub.app/correlator/internal/classify"
	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/embedding"
	"signalhub.app/correlator/internal/export"
	"signalhub.app/correlator/internal/learning"
	"signalhub.app/correlator/internal/queue"
	"signalhub.app/correlator/internal/service"
	"signalhub.app/correlator/internal/store"
	"signalhub.app/correlator/internal/tokens"
	"signalhub.app/correlator/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "correlator worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Queue.RedisGroup,
		"consumer_name", cfg.Queue.RedisConsumer)

	// Different node ID than the server so snowflake ids never collide
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to apply schema", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Queue.RedisStream,
		Group:        cfg.Queue.RedisGroup,
		Consumer:     cfg.Queue.RedisConsumer,
		DLQStream:    cfg.Queue.RedisDLQStream,
		BatchSize:    1, // Process one signal at a time
		Block:        5 * time.Second,
		MaxAttempts:  3,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database)

	correlation, err := buildCorrelation(ctx, cfg, stores)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	var processor worker.Processor = correlation
	if cfg.Export.Enabled() {
		target := export.NewLinearTarget(cfg.Export.LinearAPIKey, cfg.Export.LinearTeamID, slog.Default())
		exporter := export.NewExporter(target, stores.Groups(), stores.Signals(), slog.Default())
		processor = &exportingProcessor{CorrelationService: correlation, exporter: exporter}
		slog.InfoContext(ctx, "export enabled", "team", cfg.Export.LinearTeamID)
	}

	w := worker.New(consumer, processor, worker.Config{MaxAttempts: 3})

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

// buildCorrelation wires the classification pipeline. Without an OpenAI key
// the worker still runs, classifying and grouping by keyword overlap only.
func buildCorrelation(ctx context.Context, cfg config.Config, stores *store.Stores) (*service.CorrelationService, error) {
	var (
		embedder  *embedding.Service
		cache     *embedding.Cache
		retriever *learning.Retriever
	)

	if cfg.OpenAI.Enabled() {
		pool := cfg.Tokens.Tokens
		if cfg.Tokens.AppToken != "" {
			pool = append([]string{cfg.Tokens.AppToken}, pool...)
		}
		if len(pool) == 0 {
			pool = []string{cfg.OpenAI.APIKey}
		}

		manager, err := tokens.NewManager(tokens.Config{
			Tokens:      pool,
			Limit:       cfg.Tokens.TokenLimit,
			ResetWindow: cfg.Tokens.ResetWindow,
		}, slog.Default())
		if err != nil {
			return nil, err
		}

		provider, err := embedding.NewOpenAIProvider(embedding.Config{
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.Pipeline.EmbeddingModel,
		}, manager, slog.Default())
		if err != nil {
			return nil, err
		}

		files, err := embedding.NewFileStore(cfg.Pipeline.CacheDir)
		if err != nil {
			return nil, err
		}

		cache = embedding.NewCache(stores.Embeddings(), files, provider.Model(), provider.Dimensions(), slog.Default())
		embedder = embedding.NewService(cache, provider, slog.Default())
		retriever = learning.NewRetriever(stores.Fixes(), embedder, slog.Default())
	} else {
		slog.InfoContext(ctx, "no openai key configured, running keyword-only")
	}

	classifier := classify.New(embedder, slog.Default())
	return service.NewCorrelationService(stores, classifier, retriever, embedder, cache, cfg.Pipeline, slog.Default()), nil
}

// exportingProcessor pushes freshly persisted groups to the PM tool after
// each correlation pass. Export failures never fail the pass; the group
// stays pending and is retried next run.
type exportingProcessor struct {
	*service.CorrelationService
	exporter *export.Exporter
}

func (p *exportingProcessor) CorrelateBatch(ctx context.Context) (domain.GroupingResult, domain.RunSummary, error) {
	result, summary, err := p.CorrelationService.CorrelateBatch(ctx)
	if err != nil {
		return result, summary, err
	}

	for i := range result.Groups {
		if _, exportErr := p.exporter.ExportGroup(ctx, &result.Groups[i]); exportErr != nil {
			slog.WarnContext(ctx, "group export failed",
				"group_id", result.Groups[i].ID, "error", exportErr)
		}
	}
	return result, summary, nil
}

const banner = `
 ██████╗ ██████╗ ██████╗ ██████╗ ███████╗██╗      █████╗ ████████╗ ██████╗ ██████╗
██╔════╝██╔═══██╗██╔══██╗██╔══██╗██╔════╝██║     ██╔══██╗╚══██╔══╝██╔═══██╗██╔══██╗
██║     ██║   ██║██████╔╝██████╔╝█████╗  ██║     ███████║   ██║   ██║   ██║██████╔╝
██║     ██║   ██║██╔══██╗██╔══██╗██╔══╝  ██║     ██╔══██║   ██║   ██║   ██║██╔══██╗
╚██████╗╚██████╔╝██║  ██║██║  ██║███████╗███████╗██║  ██║   ██║   ╚██████╔╝██║  ██║
 ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝    ╚═════╝ ╚═╝  ╚═╝
`
