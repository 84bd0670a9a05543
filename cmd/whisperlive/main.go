package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"

	"github.com/pitabwire/frame"
	frameconfig "github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/workerpool"
	"gocloud.dev/blob"

	wlconfig "github.com/whisperlive/whisperlive/config"
	"github.com/whisperlive/whisperlive/internal/asr"
	"github.com/whisperlive/whisperlive/internal/batch"
	"github.com/whisperlive/whisperlive/internal/httpapi"
	"github.com/whisperlive/whisperlive/internal/stream"
	"github.com/whisperlive/whisperlive/internal/transcript"
	"github.com/whisperlive/whisperlive/internal/transport"
	"github.com/whisperlive/whisperlive/pkg/events"
	"github.com/whisperlive/whisperlive/pkg/profiles"

	// Register blob drivers via init().
	_ "gocloud.dev/blob/fileblob"

	// Register ASR backends via init().
	_ "github.com/whisperlive/whisperlive/internal/asr/backends/deepgram"
	_ "github.com/whisperlive/whisperlive/internal/asr/backends/mock"
	_ "github.com/whisperlive/whisperlive/internal/asr/backends/openai"
)

func main() {
	ctx := context.Background()

	cfg, err := frameconfig.LoadWithOIDC[wlconfig.ServiceConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("whisperlive"),
		frame.WithDatastore(),
		frame.WithRegisterPublisher(eventRef, eventURL),
		frame.WithWorkerPoolOptions(
			workerpool.WithPoolCount(cfg.WorkerPoolCount),
			workerpool.WithSinglePoolCapacity(cfg.WorkerPoolCapacity),
		),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	pub := events.NewPublisher(srv.QueueManager(), "whisperlive", eventRef)

	// --- ASR capability ---
	// An engine that fails to initialize leaves the service up but
	// unhealthy; batch and streaming requests are refused until restart.
	var gateway *asr.Gateway
	engine, initErr := asr.NewEngine(cfg.ASRBackend, cfg.BackendConfig())
	if initErr != nil {
		slog.ErrorContext(ctx, "ASR engine initialization failed",
			slog.String("backend", cfg.ASRBackend),
			slog.String("error", initErr.Error()))
	} else {
		defer engine.Close()
		gateway = asr.NewGateway(engine, pool, asr.GatewayConfig{
			Slots:      cfg.ASRConcurrency,
			Timeout:    cfg.ASRTimeout(),
			SampleRate: cfg.SampleRate,
		})
	}

	// --- Transcript storage ---
	store, err := transcript.NewStore(ctx, cfg.TranscriptBucketURL)
	if err != nil {
		log.Fatalf("opening transcript store: %v", err)
	}
	defer store.Close()

	// --- Transcription profiles ---
	loader := profiles.NewLoader(cfg.ProfileDir)
	if _, err := loader.LoadAll(); err != nil {
		log.Printf("warning: loading profiles: %v", err)
	} else {
		go func() {
			if err := loader.WatchAndReload(ctx.Done()); err != nil {
				slog.WarnContext(ctx, "profile watcher stopped",
					slog.String("error", err.Error()))
			}
		}()
	}

	// --- Batch transcription ---
	repo := batch.NewRepository(
		srv.DatastoreManager().GetPool(ctx, "__default__pool_name__"),
	)
	if err := repo.Migrate(ctx); err != nil {
		log.Printf("warning: migrating job table: %v", err)
	}
	cache := batch.NewResultCache(cfg.ResultCacheSize, cfg.ResultCacheTTL())
	openBucket := func(ctx context.Context, name string) (*blob.Bucket, error) {
		return blob.OpenBucket(ctx, cfg.AudioBucketScheme+name)
	}
	var batchTranscriber batch.Transcriber
	if gateway != nil {
		batchTranscriber = gateway
	}
	processor := batch.NewProcessor(ctx, batchTranscriber, store, cache, repo, pub, pool, openBucket, batch.ProcessorConfig{
		Language: cfg.Language,
	})

	// --- Streaming sessions ---
	registry := stream.NewRegistry()
	var streamTranscriber stream.Transcriber
	if gateway != nil {
		streamTranscriber = gateway
	}
	wsHandler := transport.NewHandler(registry, streamTranscriber, store, pub, loader, transport.HandlerConfig{
		Buffer: stream.BufferConfig{
			SampleRate:     cfg.SampleRate,
			WindowDuration: cfg.WindowDuration(),
			VAD: stream.VADConfig{
				EnergyThreshold: cfg.VADEnergyThreshold,
				SilenceMinDur:   cfg.SilenceMinDur(),
				SampleRate:      cfg.SampleRate,
			},
		},
		Language: cfg.Language,
	})

	// --- HTTP Mux ---
	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/stream", wsHandler)
	apiHandler := httpapi.NewHandler(processor, store, cfg.Environment, initErr)
	apiHandler.RegisterRoutes(mux)

	srv.Init(ctx, frame.WithHTTPHandler(mux))

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
