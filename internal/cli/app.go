package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexfield/regscout/internal/config"
	"github.com/lexfield/regscout/internal/crawler"
	"github.com/lexfield/regscout/internal/database"
	"github.com/lexfield/regscout/internal/openai"
	"github.com/lexfield/regscout/internal/pipeline"
	"github.com/lexfield/regscout/internal/politeness"
	"github.com/lexfield/regscout/internal/ratelimit"
	"github.com/lexfield/regscout/internal/repository"
	"github.com/lexfield/regscout/internal/scheduler"
	"github.com/lexfield/regscout/internal/search"
	"github.com/lexfield/regscout/internal/storage"
)

// app bundles the wired components shared by the serve and drain commands.
type app struct {
	cfg *config.Config

	pool        *pgxpool.Pool
	jobs        *repository.JobRepository
	contents    *repository.ScrapedContentRepository
	regulations *repository.RegulationRepository
	chunks      *repository.ChunkRepository

	scraper   *crawler.Scraper
	scheduler *scheduler.Service
	search    *search.Service
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// buildApp connects to the database and wires the crawl, pipeline,
// scheduler and search components from configuration. Extraction, embedding
// and blob mirroring are optional; missing credentials disable them.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, err
	}
	log.Println("connected to database")

	a := &app{
		cfg:         cfg,
		pool:        pool,
		jobs:        repository.NewJobRepository(pool),
		contents:    repository.NewScrapedContentRepository(pool),
		regulations: repository.NewRegulationRepository(pool),
		chunks:      repository.NewChunkRepository(pool),
	}

	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	rules := politeness.NewCache(httpClient, cfg.UserAgent, cfg.RobotsTTL)
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RequestsPerMinute,
		MinDelay:          cfg.MinDelay(),
		MaxDelay:          cfg.MaxDelay(),
	})
	a.scraper = crawler.New(httpClient, rules, limiter, crawler.Config{
		UserAgent:    cfg.UserAgent,
		FetchTimeout: cfg.FetchTimeout,
	})

	var extractor pipeline.Extractor
	var embedder pipeline.Embedder
	if cfg.HasOpenAI() {
		extractor = openai.NewExtractor(cfg.OpenAIAPIKey, "")
		embedder = openai.NewClient(cfg.OpenAIAPIKey)
		log.Println("extraction and embedding enabled")
	} else {
		log.Println("no OpenAI key configured, extraction and embedding disabled")
	}

	var blobs pipeline.BlobStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobs = s3Client
	}

	runner := pipeline.NewRunner(a.scraper, a.contents, a.regulations, a.chunks,
		extractor, embedder, blobs, pipeline.Config{
			ChunkSize:       cfg.ChunkSize,
			ChunkOverlap:    cfg.ChunkOverlap,
			ExtractMaxChars: cfg.ExtractMaxChars,
		})

	bulk := repository.NewBulkJobSubmitter(repository.NewTxRunner(pool))
	autoProcess := extractor != nil
	autoEmbed := embedder != nil
	a.scheduler = scheduler.NewService(a.jobs, bulk, runner, autoProcess, autoEmbed)

	if embedder != nil {
		a.search = search.NewService(openai.NewClient(cfg.OpenAIAPIKey), a.chunks, a.regulations)
	}

	return a, nil
}
