// Package watcher imports files dropped into an inbox directory as notebook
// sources. The inbox is laid out as <root>/<owner id>/<notebook id>/<file>.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/apperr"
	"github.com/BadakalaYashwanth/Scrible/internal/extract"
	"github.com/BadakalaYashwanth/Scrible/internal/fileid"
	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// Sink receives imported files. notebook.Service implements it.
type Sink interface {
	AddSource(ctx context.Context, ownerID, notebookID string, in models.SourceInput) (*models.Source, error)
	DeleteSourceByOrigin(ctx context.Context, ownerID, notebookID, originID string) error
}

// Watcher watches an inbox directory and keeps one source per file.
type Watcher struct {
	root       string
	sink       Sink
	extensions []string
	debounce   time.Duration
	maxBytes   int64
	logger     *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	pending  map[string]*time.Timer
	ctx      context.Context
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = utils.OrNop(l) }
}

// WithExtensions limits imports to the given extensions. Empty accepts every
// extension the extractor knows.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithDebounce sets how long a file must be quiet before it is imported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithMaxBytes skips files larger than n bytes.
func WithMaxBytes(n int64) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.maxBytes = n
		}
	}
}

// New returns a watcher over root. Call Start to begin watching.
func New(root string, sink Sink, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     filepath.Clean(abs),
		sink:     sink,
		debounce: defaultDebounce,
		maxBytes: extract.DefaultMaxBytes,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the watched inbox directory.
func (w *Watcher) Root() string {
	return w.root
}

// Start creates the inbox if needed, watches every owner and notebook
// directory under it and runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		_ = fw.Close()
		return nil
	}
	w.watcher = fw
	w.ctx = ctx
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		w.Stop()
		return err
	}
	w.logger.Info("Inbox watcher started", zap.String("root", w.root))
	go w.run(ctx, fw)
	return nil
}

// addTree watches dir and its subdirectories down to the notebook level.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.depth(path) > 2 {
			return filepath.SkipDir
		}
		w.mu.Lock()
		fw := w.watcher
		w.mu.Unlock()
		if fw == nil {
			return filepath.SkipAll
		}
		return fw.Add(path)
	})
}

// depth is the number of path elements between root and path.
func (w *Watcher) depth(path string) int {
	rel, err := filepath.Rel(w.root, filepath.Clean(path))
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

// locate splits an inbox file path into its owner and notebook.
func (w *Watcher) locate(path string) (owner, notebookID string, ok bool) {
	rel, err := filepath.Rel(w.root, filepath.Clean(path))
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 3 || parts[0] == ".." || strings.HasPrefix(parts[2], ".") {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (w *Watcher) accepts(path string) bool {
	if _, ok := extract.KindForFilename(path); !ok {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range w.extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Inbox watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	w.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if w.depth(path) <= 2 {
				if err := w.addTree(path); err != nil {
					w.logger.Warn("Failed to watch inbox directory", zap.String("path", path), zap.Error(err))
				}
				w.syncDir(path)
			}
			return
		}
		if _, _, ok := w.locate(path); ok && w.accepts(path) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if _, _, ok := w.locate(path); ok && w.accepts(path) {
			w.remove(path)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		ctx := w.ctx
		w.mu.Unlock()
		if ctx == nil || ctx.Err() != nil {
			return
		}
		if err := w.Import(ctx, path); err != nil {
			w.logger.Warn("Failed to import inbox file", zap.String("path", path), zap.Error(err))
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// Import adds path as a source of its notebook, replacing the source an
// earlier version of the file produced.
func (w *Watcher) Import(ctx context.Context, path string) error {
	owner, notebookID, ok := w.locate(path)
	if !ok {
		return fmt.Errorf("%s is not an inbox file", path)
	}
	kind, ok := extract.KindForFilename(path)
	if !ok {
		return fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	originID, err := fileid.ForPath(w.root, path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > w.maxBytes {
		return fmt.Errorf("%s exceeds %d bytes", path, w.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := w.sink.DeleteSourceByOrigin(ctx, owner, notebookID, originID); err != nil && !apperr.Is(err, apperr.NotFound) {
		return err
	}
	src, err := w.sink.AddSource(ctx, owner, notebookID, models.SourceInput{
		Kind:     kind,
		Name:     filepath.Base(path),
		Filename: path,
		Data:     data,
		OriginID: originID,
	})
	if err != nil {
		return err
	}
	w.logger.Info("Imported inbox file",
		zap.String("path", path),
		zap.String("notebook_id", notebookID),
		zap.String("source_id", src.ID))
	return nil
}

func (w *Watcher) remove(path string) {
	owner, notebookID, _ := w.locate(path)
	originID, err := fileid.ForPath(w.root, path)
	if err != nil {
		return
	}
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	err = w.sink.DeleteSourceByOrigin(ctx, owner, notebookID, originID)
	switch {
	case err == nil:
		w.logger.Info("Removed source of deleted inbox file", zap.String("path", path))
	case apperr.Is(err, apperr.NotFound):
	default:
		w.logger.Warn("Failed to remove inbox source", zap.String("path", path), zap.Error(err))
	}
}

// Sync imports every file already in the inbox.
func (w *Watcher) Sync(ctx context.Context) {
	w.syncDirWith(ctx, w.root)
}

func (w *Watcher) syncDir(dir string) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx != nil {
		w.syncDirWith(ctx, dir)
	}
}

func (w *Watcher) syncDirWith(ctx context.Context, dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if w.depth(path) > 2 {
				return filepath.SkipDir
			}
			return nil
		}
		if _, _, ok := w.locate(path); !ok || !w.accepts(path) {
			return nil
		}
		if err := w.Import(ctx, path); err != nil {
			w.logger.Warn("Failed to import inbox file", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("Inbox sync failed", zap.String("dir", dir), zap.Error(err))
	}
}

// Stop stops watching and drops pending imports.
func (w *Watcher) Stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	fw := w.watcher
	w.watcher = nil
	w.mu.Unlock()
	if fw != nil {
		_ = fw.Close()
	}
	w.stopOnce.Do(func() { close(w.done) })
}
