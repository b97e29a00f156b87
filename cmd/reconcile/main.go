package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/batch"
	"github.com/joseph-ayodele/payorders/internal/common"
	"github.com/joseph-ayodele/payorders/internal/consistency"
	"github.com/joseph-ayodele/payorders/internal/document"
	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/extraction"
	repo "github.com/joseph-ayodele/payorders/internal/repository"
)

// report is one line of output per document.
type report struct {
	Document      string                   `json:"document"`
	Pages         int                      `json:"pages,omitempty"`
	Cached        bool                     `json:"cached,omitempty"`
	Confidence    constants.ConfidenceTier `json:"confidence,omitempty"`
	Populated     int                      `json:"populated"`
	Patch         entity.Patch             `json:"patch"`
	Notices       []string                 `json:"notices,omitempty"`
	Discrepancies []entity.Discrepancy     `json:"discrepancies,omitempty"`
	Messages      []string                 `json:"messages,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file     = flag.String("file", "", "billing document to read")
		dir      = flag.String("dir", "", "directory of billing documents to read")
		refsPath = flag.String("refs", "", "reference lists YAML (defaults to REFERENCES_FILE)")
		formPath = flag.String("form", "", "form JSON to check against the document (with --file only)")
		workers  = flag.Int("workers", 4, "concurrent extractions for --dir")
		noCache  = flag.Bool("no-cache", false, "bypass the extraction cache")
		watch    = flag.Bool("watch", false, "keep watching --dir and print one JSON line per new document")
	)
	flag.Parse()

	if (*file == "") == (*dir == "") {
		printError("Error: exactly one of --file or --dir is required\n")
		os.Exit(1)
	}
	if *watch && *dir == "" {
		printError("Error: --watch requires --dir\n")
		os.Exit(1)
	}
	if *formPath != "" && *dir != "" {
		printError("Error: --form can only be used with --file\n")
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Server.LogFormat, cfg.Server.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	if *refsPath == "" {
		*refsPath = cfg.References.File
	}
	if *refsPath == "" {
		printError("Error: --refs or REFERENCES_FILE is required\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, options{
		file:     *file,
		dir:      *dir,
		refsPath: *refsPath,
		formPath: *formPath,
		workers:  *workers,
		cache:    cfg.Cache.Enabled && !*noCache,
		watch:    *watch,
	}, os.Stdout); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	file     string
	dir      string
	refsPath string
	formPath string
	workers  int
	cache    bool
	watch    bool
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts options, out io.Writer) error {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := repo.LoadFileReferenceStore(opts.refsPath)
	if err != nil {
		return err
	}
	refs, err := repo.LoadLists(ctx, store)
	if err != nil {
		return err
	}

	client, err := extraction.NewClient(extraction.Config{
		URL:     cfg.Extraction.URL,
		APIKey:  cfg.Extraction.APIKey,
		Timeout: cfg.Extraction.Timeout,
		Lenient: cfg.Extraction.Lenient,
	}, logger)
	if err != nil {
		return err
	}
	var ext extraction.Extractor = client
	if opts.cache {
		cache, err := extraction.OpenCache(ctx, cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close()
		ext = extraction.NewCachedExtractor(client, cache, logger)
	}

	var form *entity.FormState
	if opts.formPath != "" {
		b, err := os.ReadFile(opts.formPath)
		if err != nil {
			return fmt.Errorf("read form: %w", err)
		}
		var f entity.FormState
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("decode form: %w", err)
		}
		form = &f
	}

	if opts.watch {
		return watchDir(ctx, cfg, logger, ext, refs, opts, out)
	}

	var docs []document.Document
	var reports []report
	if opts.file != "" {
		doc, err := document.Load(opts.file, cfg.Extraction.MaxDocumentMB)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	} else {
		results, stats, err := document.LoadDirectory(ctx, opts.dir, true, cfg.Extraction.MaxDocumentMB)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != "" {
				reports = append(reports, report{Document: r.Path, Error: r.Err})
				continue
			}
			docs = append(docs, r.Document)
		}
		logger.Info("reconcile.directory",
			"dir", opts.dir,
			"scanned", stats.Scanned,
			"matched", stats.Matched,
			"loaded", stats.Succeeded,
			"failed", stats.Failed,
		)
	}

	outcomes, err := batch.Run(ctx, ext, refs, docs, logger, batch.WithWorkers(opts.workers))
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		reports = append(reports, toReport(o, form))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// watchDir reads every document already in the directory and each one that
// appears afterwards, writing one JSON report per line until ctx ends.
func watchDir(ctx context.Context, cfg *common.Config, logger *slog.Logger, ext extraction.Extractor, refs entity.ReferenceLists, opts options, out io.Writer) error {
	paths, errs, err := document.Watch(ctx, document.WatchConfig{
		Roots:       []string{opts.dir},
		InitialScan: true,
		Debounce:    250 * time.Millisecond,
		SkipHidden:  true,
	}, logger)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	enc := json.NewEncoder(out)
	write := func(r report) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(r); err != nil {
			logger.Error("reconcile.watch.write_failed", "document", r.Document, "error", err)
		}
	}

	q := batch.NewQueue(ext, refs, logger,
		batch.WithWorkers(opts.workers),
		batch.WithBaseContext(ctx),
		batch.WithOnDone(func(o batch.Outcome) { write(toReport(o, nil)) }),
	)
	defer q.Shutdown(context.Background())

	seq := 0
	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			doc, err := document.Load(p, cfg.Extraction.MaxDocumentMB)
			if err != nil {
				write(report{Document: p, Error: err.Error()})
				continue
			}
			if err := q.Enqueue(ctx, batch.Job{Seq: seq, Document: doc}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			seq++
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("reconcile.watch.error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}

func toReport(o batch.Outcome, form *entity.FormState) report {
	r := report{Document: o.Document, Pages: o.Pages, Cached: o.Cached}
	if o.Err != nil {
		r.Error = o.Err.Error()
		return r
	}
	r.Confidence = o.Merge.Confidence
	r.Populated = o.Merge.Populated
	r.Patch = o.Merge.Patch
	r.Notices = o.Merge.Notices
	if form != nil {
		r.Discrepancies = consistency.Check(o.Fields, *form)
		r.Messages = entity.Messages(r.Discrepancies)
	}
	return r
}
