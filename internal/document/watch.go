package document

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/payorders/constants"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // emit documents already present
	Debounce    time.Duration // coalesce bursts of writes to one file
	SkipHidden  bool
}

// Watch emits the paths of allowed documents created or rewritten under the
// roots until ctx ends. A path can be emitted more than once; consumers
// dedupe by content hash. Both channels are closed when ctx ends.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	// addTree watches every directory under root and returns the allowed
	// documents already inside it.
	addTree := func(root string) ([]string, error) {
		var found []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if constants.AllowedExt(filepath.Ext(path)) {
				found = append(found, path)
			}
			return nil
		})
		return found, err
	}

	var initial []string
	for _, r := range cfg.Roots {
		found, err := addTree(r)
		if err != nil {
			logger.Error("document.watch.add_root_failed", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
		if cfg.InitialScan {
			initial = append(initial, found...)
		}
	}
	logger.Info("document.watch.started", "roots", cfg.Roots, "initial", len(initial))

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		emit := func(path string) bool {
			select {
			case evCh <- path:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		pending := map[string]struct{}{}
		var flushC <-chan time.Time
		flush := func() bool {
			for p := range pending {
				delete(pending, p)
				if !emit(p) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
						found, err := addTree(e.Name)
						if err != nil {
							logger.Warn("document.watch.add_dir_failed", "path", e.Name, "error", err)
						}
						for _, p := range found {
							pending[p] = struct{}{}
						}
						if len(found) > 0 && cfg.Debounce <= 0 && !flush() {
							return
						}
						if len(found) > 0 && cfg.Debounce > 0 {
							flushC = time.After(cfg.Debounce)
						}
						continue
					}
				}
				if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
					continue
				}
				if !constants.AllowedExt(filepath.Ext(e.Name)) || (cfg.SkipHidden && IsHidden(e.Name)) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				flushC = time.After(cfg.Debounce)
			case <-flushC:
				flushC = nil
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("document.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
