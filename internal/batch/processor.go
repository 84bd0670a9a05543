package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pitabwire/frame/workerpool"
	"gocloud.dev/blob"

	"github.com/whisperlive/whisperlive/internal/asr"
	"github.com/whisperlive/whisperlive/internal/transcript"
	"github.com/whisperlive/whisperlive/pkg/events"
)

// supportedExtensions lists the audio types accepted at submit time.
var supportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".aac":  true,
}

// SupportedFormat reports whether the file name has an accepted audio
// extension.
func SupportedFormat(name string) bool {
	return supportedExtensions[strings.ToLower(path.Ext(name))]
}

// Transcriber is the inference capability used for full-file passes.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, startOffset int64, opts asr.Options) ([]asr.Segment, error)
}

// BucketOpener resolves a storage bucket by name. Injected so tests can
// serve objects from memory.
type BucketOpener func(ctx context.Context, name string) (*blob.Bucket, error)

// ProcessorConfig carries batch transcription defaults.
type ProcessorConfig struct {
	Language string
}

// Processor runs batch transcription jobs: it accepts submissions, moves
// the heavy work onto the worker pool and tracks job state through the
// cache and the job store.
type Processor struct {
	baseCtx     context.Context
	transcriber Transcriber
	store       *transcript.Store
	cache       *ResultCache
	jobs        JobStore
	pub         *events.Publisher
	pool        workerpool.WorkerPool
	openBucket  BucketOpener
	cfg         ProcessorConfig
}

// NewProcessor creates a processor. baseCtx scopes background work so jobs
// survive the request that submitted them. jobs and pub may be nil; a nil
// pool falls back to plain goroutines.
func NewProcessor(baseCtx context.Context, transcriber Transcriber, store *transcript.Store, cache *ResultCache, jobs JobStore, pub *events.Publisher, pool workerpool.WorkerPool, openBucket BucketOpener, cfg ProcessorConfig) *Processor {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Processor{
		baseCtx:     baseCtx,
		transcriber: transcriber,
		store:       store,
		cache:       cache,
		jobs:        jobs,
		pub:         pub,
		pool:        pool,
		openBucket:  openBucket,
		cfg:         cfg,
	}
}

// SubmitObject accepts a transcription job for an object already in
// storage. Unsupported extensions are rejected immediately; accepted jobs
// return pending and complete in the background.
func (p *Processor) SubmitObject(ctx context.Context, requestID, bucket, objectName, sessionID, language string) JobResult {
	if !SupportedFormat(objectName) {
		return p.reject(ctx, requestID, objectName)
	}

	language = p.language(language)
	job := &Job{
		RequestID:  requestID,
		SessionID:  sessionID,
		Bucket:     bucket,
		ObjectName: objectName,
		Language:   language,
		Status:     StatusPending,
	}
	pending := p.accept(ctx, job)

	p.schedule(requestID, func(bg context.Context) (*transcript.Document, string, error) {
		b, err := p.openBucket(bg, bucket)
		if err != nil {
			return nil, "", fmt.Errorf("open bucket %q: %w", bucket, err)
		}
		defer b.Close()
		data, err := b.ReadAll(bg, objectName)
		if err != nil {
			return nil, "", fmt.Errorf("download %q: %w", objectName, err)
		}
		return p.transcribe(bg, data, sessionID, objectName, language)
	})

	return pending
}

// SubmitUpload accepts a transcription job for a file already written to
// local disk by the upload handler. The file is removed once processed.
func (p *Processor) SubmitUpload(ctx context.Context, requestID, filePath, originalName, sessionID, language string) JobResult {
	if !SupportedFormat(originalName) {
		return p.reject(ctx, requestID, originalName)
	}

	language = p.language(language)
	job := &Job{
		RequestID:  requestID,
		SessionID:  sessionID,
		ObjectName: originalName,
		Language:   language,
		Status:     StatusPending,
	}
	pending := p.accept(ctx, job)

	p.schedule(requestID, func(bg context.Context) (*transcript.Document, string, error) {
		defer os.Remove(filePath)
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		return p.transcribe(bg, data, sessionID, originalName, language)
	})

	return pending
}

// Result returns the current state of a job, preferring the cache and
// falling back to the job store. Successful results reload their
// transcript from storage when the cache no longer holds it.
func (p *Processor) Result(ctx context.Context, requestID string) (JobResult, bool) {
	if result, ok := p.cache.Get(requestID); ok {
		return result, true
	}
	if p.jobs == nil {
		return JobResult{}, false
	}
	job, err := p.jobs.GetByRequestID(ctx, requestID)
	if err != nil {
		return JobResult{}, false
	}

	result := JobResult{
		Status:                job.Status,
		Message:               job.Message,
		RequestID:             job.RequestID,
		TranscriptLocation:    job.TranscriptLocation,
		ProcessingTimeSeconds: float64(job.ProcessingMs) / 1000,
		ErrorDetails:          job.ErrorDetails,
	}
	if job.Status == StatusSuccess && job.TranscriptLocation != "" {
		doc, err := p.store.Load(ctx, job.TranscriptLocation)
		if err != nil {
			slog.WarnContext(ctx, "stored transcript unreadable",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()))
		} else {
			result.Result = doc
		}
	}
	p.cache.Set(requestID, result)
	return result, true
}

// transcribe decodes the audio, runs a single full-file inference pass and
// persists the transcript. Returns the document and its storage key.
func (p *Processor) transcribe(ctx context.Context, data []byte, sessionID, objectName, language string) (*transcript.Document, string, error) {
	if p.transcriber == nil {
		return nil, "", fmt.Errorf("transcription engine unavailable")
	}
	pcm, sampleRate, err := decodeWAV(data)
	if err != nil {
		return nil, "", err
	}

	segs, err := p.transcriber.Transcribe(ctx, pcm, 0, asr.Options{
		Language:   language,
		SampleRate: sampleRate,
	})
	if err != nil {
		return nil, "", err
	}

	doc := transcript.BuildDocument(segs, language)
	key := transcript.ObjectKey(sessionID, objectName)
	if err := p.store.Save(ctx, key, doc); err != nil {
		return nil, "", err
	}
	return doc, key, nil
}

func (p *Processor) reject(ctx context.Context, requestID, name string) JobResult {
	result := JobResult{
		Status:    StatusSkipped,
		Message:   fmt.Sprintf("unsupported file type: %s", path.Ext(name)),
		RequestID: requestID,
	}
	p.cache.Set(requestID, result)
	slog.InfoContext(ctx, "batch job skipped",
		slog.String("request_id", requestID),
		slog.String("object", name))
	return result
}

func (p *Processor) accept(ctx context.Context, job *Job) JobResult {
	if p.jobs != nil {
		if err := p.jobs.Create(ctx, job); err != nil {
			slog.WarnContext(ctx, "job record create failed",
				slog.String("request_id", job.RequestID),
				slog.String("error", err.Error()))
		}
	}
	result := JobResult{
		Status:    StatusPending,
		Message:   "queued for processing",
		RequestID: job.RequestID,
	}
	p.cache.Set(job.RequestID, result)
	p.emit(ctx, events.BatchAccepted, job, "")
	return result
}

// schedule moves one job onto the worker pool and records its outcome.
func (p *Processor) schedule(requestID string, work func(ctx context.Context) (*transcript.Document, string, error)) {
	run := func() {
		ctx := p.baseCtx
		start := time.Now()
		p.cache.Set(requestID, JobResult{
			Status:    StatusProcessing,
			Message:   "transcription in progress",
			RequestID: requestID,
		})

		doc, key, err := work(ctx)
		elapsed := time.Since(start)
		if err != nil {
			p.complete(ctx, requestID, JobResult{
				Status:                StatusError,
				Message:               "transcription failed",
				RequestID:             requestID,
				ProcessingTimeSeconds: elapsed.Seconds(),
				ErrorDetails:          err.Error(),
			})
			return
		}
		p.complete(ctx, requestID, JobResult{
			Status:                StatusSuccess,
			Message:               "transcription complete",
			RequestID:             requestID,
			TranscriptLocation:    key,
			ProcessingTimeSeconds: elapsed.Seconds(),
			Result:                doc,
		})
	}

	if p.pool != nil {
		if err := p.pool.Submit(p.baseCtx, run); err == nil {
			return
		}
	}
	go run()
}

func (p *Processor) complete(ctx context.Context, requestID string, result JobResult) {
	p.cache.Set(requestID, result)

	var job *Job
	if p.jobs != nil {
		stored, err := p.jobs.GetByRequestID(ctx, requestID)
		if err == nil {
			job = stored
			job.Status = result.Status
			job.Message = result.Message
			job.TranscriptLocation = result.TranscriptLocation
			job.ErrorDetails = result.ErrorDetails
			job.ProcessingMs = int64(result.ProcessingTimeSeconds * 1000)
			if err := p.jobs.Update(ctx, job); err != nil {
				slog.WarnContext(ctx, "job record update failed",
					slog.String("request_id", requestID),
					slog.String("error", err.Error()))
			}
		}
	}

	eventType := events.BatchCompleted
	if result.Status != StatusSuccess {
		eventType = events.BatchFailed
	}
	if job == nil {
		job = &Job{RequestID: requestID, Status: result.Status, TranscriptLocation: result.TranscriptLocation}
	}
	p.emit(ctx, eventType, job, result.ErrorDetails)

	slog.InfoContext(ctx, "batch job finished",
		slog.String("request_id", requestID),
		slog.String("status", result.Status),
		slog.Float64("seconds", result.ProcessingTimeSeconds))
}

func (p *Processor) emit(ctx context.Context, eventType events.EventType, job *Job, errDetail string) {
	if p.pub == nil {
		return
	}
	err := p.pub.Emit(ctx, eventType, job.SessionID, events.BatchJobData{
		RequestID:          job.RequestID,
		Bucket:             job.Bucket,
		ObjectName:         job.ObjectName,
		SessionID:          job.SessionID,
		Status:             job.Status,
		TranscriptLocation: job.TranscriptLocation,
		Error:              errDetail,
	})
	if err != nil {
		slog.WarnContext(ctx, "event publish failed",
			slog.String("request_id", job.RequestID),
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
	}
}

func (p *Processor) language(language string) string {
	if language != "" {
		return language
	}
	return p.cfg.Language
}
