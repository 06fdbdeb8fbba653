// Package speech turns a voice attachment into a transcript.
//
// Each call owns two temporary files in the audio directory, keyed by sender:
// {sender}_voice.ogg (as downloaded) and {sender}_voice.wav (converted).
// Both are removed before Transcribe returns, whatever the outcome.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"skynix/internal/audio"
	"skynix/internal/domain"
)

// FailureKind separates "heard nothing" from "could not process".
type FailureKind string

const (
	NotUnderstood   FailureKind = "not_understood"
	ProcessingError FailureKind = "processing_error"
)

// ErrEmptyTranscript is reported when the engine recognised no speech.
var ErrEmptyTranscript = errors.New("no speech recognized")

// Failure describes why a voice message produced no transcript.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Converter turns the downloaded clip into a WAV file.
type Converter func(ctx context.Context, src, dst string) error

// Artifacts are the per-request temporary files.
type Artifacts struct {
	OggPath string
	WavPath string
}

// Remove deletes both files, ignoring ones that do not exist.
func (a Artifacts) Remove() error {
	var errs []error
	for _, p := range []string{a.OggPath, a.WavPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Config struct {
	Dir        string // audio directory; created by EnsureDir
	Downloader domain.FileDownloader
	Engine     domain.SpeechToText
	Convert    Converter     // default: audio.ConvertOggToWav
	MaxSeconds int           // clip length cap passed to the default converter
	Timeout    time.Duration // whole download+convert+transcribe budget; default 60s
	Logger     *slog.Logger
}

// Transcriber downloads, converts and transcribes voice clips.
type Transcriber struct {
	dir        string
	downloader domain.FileDownloader
	engine     domain.SpeechToText
	convert    Converter
	timeout    time.Duration
	logger     *slog.Logger

	// Serialises voice messages per sender so their files never collide.
	locksMu sync.Mutex
	locks   map[string]*senderLock
}

type senderLock struct {
	mu   sync.Mutex
	refs int
}

func New(cfg Config) *Transcriber {
	if cfg.Convert == nil {
		maxSeconds := cfg.MaxSeconds
		cfg.Convert = func(ctx context.Context, src, dst string) error {
			return audio.ConvertOggToWav(ctx, src, dst, audio.Options{MaxSeconds: maxSeconds})
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Transcriber{
		dir:        cfg.Dir,
		downloader: cfg.Downloader,
		engine:     cfg.Engine,
		convert:    cfg.Convert,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
		locks:      make(map[string]*senderLock),
	}
}

// EnsureDir creates the audio directory if absent.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create audio dir %s: %w", dir, err)
	}
	return nil
}

// ArtifactsFor returns the temporary file paths used for sender.
func (t *Transcriber) ArtifactsFor(senderID string) Artifacts {
	base := filepath.Join(t.dir, safeName(senderID)+"_voice")
	return Artifacts{OggPath: base + ".ogg", WavPath: base + ".wav"}
}

// Transcribe returns the transcript, or a non-nil Failure.
func (t *Transcriber) Transcribe(ctx context.Context, senderID, fileID string) (string, *Failure) {
	unlock := t.lockSender(senderID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	art := t.ArtifactsFor(senderID)
	defer func() {
		if err := art.Remove(); err != nil {
			t.logger.Error("voice cleanup failed", "sender", senderID, "error", err)
		}
	}()

	if t.downloader == nil || t.engine == nil {
		return "", &Failure{Kind: ProcessingError, Err: errors.New("voice transcription is not configured")}
	}

	if err := t.download(ctx, fileID, art.OggPath); err != nil {
		return "", &Failure{Kind: ProcessingError, Err: err}
	}
	if err := t.convert(ctx, art.OggPath, art.WavPath); err != nil {
		return "", &Failure{Kind: ProcessingError, Err: fmt.Errorf("convert voice: %w", err)}
	}

	wav, err := os.Open(art.WavPath)
	if err != nil {
		return "", &Failure{Kind: ProcessingError, Err: fmt.Errorf("open converted audio: %w", err)}
	}
	defer wav.Close()

	res, err := t.engine.Transcribe(ctx, wav, filepath.Base(art.WavPath))
	if err != nil {
		return "", &Failure{Kind: ProcessingError, Err: err}
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", &Failure{Kind: NotUnderstood, Err: ErrEmptyTranscript}
	}

	t.logger.Info("voice transcribed", "sender", senderID, "text_len", len(text))
	return text, nil
}

func (t *Transcriber) download(ctx context.Context, fileID, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if err := t.downloader.Download(ctx, fileID, f); err != nil {
		f.Close()
		return fmt.Errorf("download voice: %w", err)
	}
	return f.Close()
}

func (t *Transcriber) lockSender(senderID string) func() {
	t.locksMu.Lock()
	l, ok := t.locks[senderID]
	if !ok {
		l = &senderLock{}
		t.locks[senderID] = l
	}
	l.refs++
	t.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, senderID)
		}
		t.locksMu.Unlock()
	}
}

// safeName keeps sender IDs from escaping the audio directory.
func safeName(id string) string {
	if id == "" {
		return "anonymous"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
