package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
	"github.com/vofas/vofas-backend/internal/stream"
)

// Config tunes the pipeline.
type Config struct {
	// Workers is the size of the pool processing stages. Blocking I/O
	// (disk, database, external transcription and sentiment calls) only
	// ever runs on this pool, never on request-handling goroutines.
	Workers int

	// TranscribeTimeout bounds one external transcription call.
	TranscribeTimeout time.Duration

	// SentimentTimeout bounds one external classification call.
	SentimentTimeout time.Duration

	// Language passed to the transcriber.
	Language string

	// AllowM4A additionally admits m4a uploads through the media gate.
	AllowM4A bool
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = 60 * time.Second
	}
	if c.SentimentTimeout <= 0 {
		c.SentimentTimeout = 30 * time.Second
	}
	if c.Language == "" {
		c.Language = "en-US"
	}
	return c
}

// Upload is one incoming feedback submission.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
	Token       string
}

// task is one unit of background work: drive a feedback record forward from
// its current state. Upload bytes ride along on the first pass so the store
// stage does not have to re-read them.
type task struct {
	feedbackID  string
	filename    string
	contentType string
	data        []byte
}

// Pipeline owns the feedback state machine. It sequences file persistence,
// hashing, duration probing, transcription and sentiment analysis for each
// accepted upload, and publishes completed feedback to the broker.
//
// For a single feedback id the stages run strictly in order on one worker;
// across ids tasks interleave freely. The pipeline is the only mutator of a
// feedback record during processing.
type Pipeline struct {
	feedback    repositories.FeedbackRepository
	tokens      repositories.TokenRepository
	media       repositories.MediaStore
	transcriber repositories.Transcriber
	classifier  repositories.SentimentClassifier
	broker      *stream.Broker
	logger      *zap.Logger
	config      Config

	tasks  chan task
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool

	// inflight holds the ids currently queued or being processed. At most
	// one task per feedback id exists at a time, so a Resume racing an
	// in-flight walk can never put two workers on the same record.
	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// encodingSupporter is implemented by transcribers that can report which
// audio encodings they accept.
type encodingSupporter interface {
	SupportsEncoding(encoding string) bool
}

// New creates a pipeline. classifier may be nil, in which case feedback stops
// advancing at TRANSCRIBED until a classifier is configured. AllowM4A only
// takes effect when the transcriber accepts M4A audio; admitting a format the
// transcriber cannot decode would park every such upload permanently.
func New(
	feedback repositories.FeedbackRepository,
	tokens repositories.TokenRepository,
	media repositories.MediaStore,
	transcriber repositories.Transcriber,
	classifier repositories.SentimentClassifier,
	broker *stream.Broker,
	logger *zap.Logger,
	config Config,
) *Pipeline {
	config = config.withDefaults()
	if config.AllowM4A {
		s, ok := transcriber.(encodingSupporter)
		if !ok || !s.SupportsEncoding("M4A") {
			config.AllowM4A = false
			logger.Warn("m4a uploads disabled, the configured transcriber does not accept M4A audio")
		}
	}
	return &Pipeline{
		feedback:    feedback,
		tokens:      tokens,
		media:       media,
		transcriber: transcriber,
		classifier:  classifier,
		broker:      broker,
		logger:      logger,
		config:      config,
		tasks:       make(chan task, config.Workers*4),
		inflight:    make(map[string]struct{}),
	}
}

// Start launches the worker pool.
func (p *Pipeline) Start() {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.logger.Info("Feedback pipeline started", zap.Int("workers", p.config.Workers))
}

// Stop drains queued work and waits for in-flight stages to finish, up to
// the deadline on ctx.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Feedback pipeline stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipeline shutdown interrupted: %w", ctx.Err())
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.process(t)
		p.release(t.feedbackID)
	}
}

// claim reserves a feedback id for one task. It fails when the id is already
// queued or mid-walk on a worker.
func (p *Pipeline) claim(id string) error {
	p.inflightMu.Lock()
	defer p.inflightMu.Unlock()
	if _, busy := p.inflight[id]; busy {
		return fmt.Errorf("feedback %s is already being processed", id)
	}
	p.inflight[id] = struct{}{}
	return nil
}

func (p *Pipeline) release(id string) {
	p.inflightMu.Lock()
	delete(p.inflight, id)
	p.inflightMu.Unlock()
}

func (p *Pipeline) enqueue(t task) error {
	if err := p.claim(t.feedbackID); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.release(t.feedbackID)
		return fmt.Errorf("pipeline is shut down")
	}
	p.tasks <- t
	return nil
}

// Ingest accepts a feedback upload. It gates the media type, redeems the
// validation token and durably creates the feedback record, then returns the
// new id; storage, transcription and sentiment analysis continue on the
// worker pool so a slow external call never blocks request intake.
func (p *Pipeline) Ingest(ctx context.Context, upload Upload) (string, error) {
	if _, err := detectFormat(upload.ContentType, upload.Filename, p.config.AllowM4A); err != nil {
		return "", err
	}

	// The id is minted up front so the token can be flipped USED and linked
	// to it in one atomic step, before the record exists.
	feedback := entities.NewFeedback("", upload.Token)

	kioskID, err := p.tokens.Redeem(ctx, upload.Token, feedback.ID)
	if err != nil {
		return "", err
	}
	feedback.KioskID = kioskID

	if err := p.feedback.Create(ctx, feedback); err != nil {
		return "", fmt.Errorf("creating feedback record: %w", err)
	}

	p.logger.Info("Feedback accepted",
		zap.String("feedbackID", feedback.ID),
		zap.String("kioskID", kioskID),
		zap.String("filename", upload.Filename))

	if err := p.enqueue(task{
		feedbackID:  feedback.ID,
		filename:    upload.Filename,
		contentType: upload.ContentType,
		data:        upload.Data,
	}); err != nil {
		return "", err
	}

	return feedback.ID, nil
}

// Resume re-drives a feedback record from its current state. It is the
// caller-facing retry for a parked record: stages that already completed are
// not re-run, and a record whose walk is still in flight is refused rather
// than walked twice. A record still at RECEIVED has no stored media and
// cannot be resumed, the upload has to be repeated.
func (p *Pipeline) Resume(ctx context.Context, id string) error {
	feedback, err := p.feedback.GetByID(ctx, id)
	if err != nil {
		return err
	}

	switch feedback.State {
	case entities.FeedbackStateCompleted:
		return fmt.Errorf("feedback %s is already completed", id)
	case entities.FeedbackStateReceived:
		if feedback.FilePath == "" {
			return fmt.Errorf("feedback %s has no stored media to resume from", id)
		}
	}

	return p.enqueue(task{
		feedbackID:  id,
		filename:    feedback.FilePath,
		contentType: "",
	})
}

// audioFormat is the result of the media-type gate.
type audioFormat struct {
	Ext      string
	Encoding string
}

// detectFormat is the pure precondition in front of the pipeline: it admits
// mp3 and wav (and m4a when enabled) by declared content type or filename
// extension, and rejects everything else before any state is created.
func detectFormat(contentType, filename string, allowM4A bool) (audioFormat, error) {
	name := strings.ToLower(filename)
	switch {
	case contentType == "audio/mpeg" || strings.HasSuffix(name, ".mp3"):
		return audioFormat{Ext: ".mp3", Encoding: "MP3"}, nil
	case contentType == "audio/wav" || contentType == "audio/x-wav" || strings.HasSuffix(name, ".wav"):
		return audioFormat{Ext: ".wav", Encoding: "LINEAR16"}, nil
	case allowM4A && (contentType == "audio/mp4" || strings.HasSuffix(name, ".m4a")):
		return audioFormat{Ext: ".m4a", Encoding: "M4A"}, nil
	}
	return audioFormat{}, &domain.UnsupportedMediaTypeError{ContentType: contentType, Filename: filename}
}

// formatForPath recovers the transcriber encoding for media already on disk.
func formatForPath(path string) audioFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return audioFormat{Ext: ".wav", Encoding: "LINEAR16"}
	case ".m4a":
		return audioFormat{Ext: ".m4a", Encoding: "M4A"}
	default:
		return audioFormat{Ext: ".mp3", Encoding: "MP3"}
	}
}
