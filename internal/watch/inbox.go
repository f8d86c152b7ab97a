// Package watch feeds invoice files dropped into an inbox directory into the
// processing pipeline.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kdimtricp/budgetmanager/internal/metrics"
	"github.com/kdimtricp/budgetmanager/internal/processing"
	"github.com/kdimtricp/budgetmanager/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultDebounce = 500 * time.Millisecond
	queueSize       = 64

	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// Handler processes one inbox file. The file is moved to the processed or
// failed subdirectory afterwards.
type Handler func(ctx context.Context, path string) error

type Processor interface {
	Process(ctx context.Context, doc processing.Document) (*processing.Result, error)
}

// PipelineHandler copies an inbox file into upload storage and processes the
// copy.
func PipelineHandler(store storage.Storage, p Processor) Handler {
	return func(ctx context.Context, path string) error {
		name, err := store.SavePath(path)
		if err != nil {
			return err
		}
		full, err := store.GetFilePath(name)
		if err != nil {
			return err
		}
		if _, err := p.Process(ctx, processing.Document{Path: full, Filename: filepath.Base(path)}); err != nil {
			// the original is kept under failed/
			store.DeleteFile(name)
			return err
		}
		return nil
	}
}

type Inbox struct {
	dir        string
	extensions []string
	debounce   time.Duration
	handle     Handler
	metrics    *metrics.Metrics
	logger     *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	queue  chan string
	wg     sync.WaitGroup
}

func NewInbox(dir string, extensions []string, debounce time.Duration, handle Handler, m *metrics.Metrics, logger *zap.Logger) *Inbox {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{
		dir:        dir,
		extensions: extensions,
		debounce:   debounce,
		handle:     handle,
		metrics:    m,
		logger:     logger,
		timers:     make(map[string]*time.Timer),
		queue:      make(chan string, queueSize),
	}
}

// Run watches the inbox until ctx is cancelled. Files already present are
// queued first. Files are handled one at a time.
func (in *Inbox) Run(ctx context.Context) error {
	for _, d := range []string{in.dir, filepath.Join(in.dir, ProcessedDir), filepath.Join(in.dir, FailedDir)} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", in.dir, err)
	}

	in.wg.Add(1)
	go in.worker(ctx)
	defer in.wg.Wait()

	in.logger.Info("inbox watcher started", zap.String("dir", in.dir), zap.Strings("extensions", in.extensions))
	in.queueExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			in.stopTimers()
			in.logger.Info("inbox watcher stopped")
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				if in.accepts(ev.Name) {
					in.schedule(ctx, ev.Name)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}

func (in *Inbox) queueExisting(ctx context.Context) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.logger.Warn("failed to scan inbox", zap.Error(err))
		return
	}
	for _, e := range entries {
		path := filepath.Join(in.dir, e.Name())
		if in.accepts(path) {
			in.enqueue(ctx, path)
		}
	}
}

func (in *Inbox) accepts(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return matchExtension(path, in.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule queues path once it has been quiet for the debounce interval.
func (in *Inbox) schedule(ctx context.Context, path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.timers[path]; ok {
		t.Stop()
	}
	in.timers[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.timers, path)
		in.mu.Unlock()
		in.enqueue(ctx, path)
	})
}

func (in *Inbox) enqueue(ctx context.Context, path string) {
	select {
	case in.queue <- path:
	case <-ctx.Done():
	}
}

func (in *Inbox) stopTimers() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for path, t := range in.timers {
		t.Stop()
		delete(in.timers, path)
	}
}

func (in *Inbox) worker(ctx context.Context) {
	defer in.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-in.queue:
			in.process(ctx, path)
		}
	}
}

func (in *Inbox) process(ctx context.Context, path string) {
	// already handled through an earlier event
	if _, err := os.Stat(path); err != nil {
		return
	}

	err := in.handle(ctx, path)
	dest := ProcessedDir
	if err != nil {
		dest = FailedDir
		in.metrics.RecordInboxFile(metrics.StatusError)
		in.logger.Error("inbox file failed", zap.String("path", path), zap.Error(err))
	} else {
		in.metrics.RecordInboxFile(metrics.StatusSuccess)
		in.logger.Info("inbox file processed", zap.String("path", path))
	}

	target := filepath.Join(in.dir, dest, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(in.dir, dest, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	if err := os.Rename(path, target); err != nil {
		in.logger.Warn("failed to move inbox file", zap.String("path", path), zap.Error(err))
	}
}
