// Package cli implements the MediaVault uploader command line client.
// It wires the transport, record store and upload tracker together and
// drives batch uploads with live progress reporting.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/asset"
	"github.com/dmitrijs2005/mediavault/internal/cli/config"
	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/pipeline"
	"github.com/dmitrijs2005/mediavault/internal/store"
	"github.com/dmitrijs2005/mediavault/internal/transport"
	"github.com/dmitrijs2005/mediavault/internal/uploads"
)

const secretEnv = "MEDIAVAULT_SECRET"

type App struct {
	config   *config.Config
	log      logging.Logger
	client   *transport.Client
	store    store.Store
	uploader *pipeline.Uploader
	tracker  *uploads.Tracker
	out      io.Writer

	remaining atomic.Int32
	failed    atomic.Int32
}

func NewApp(c *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	logger := logging.NewSlogLogger(slogger)

	if c.Secret == "" {
		c.Secret = os.Getenv(secretEnv)
	}
	if c.Secret == "" {
		secret, err := GetSecret(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading secret: %w", err)
		}
		c.Secret = secret
	}

	var st store.Store
	if c.DatabaseDSN != "" {
		ps, err := store.NewPostgresStore(c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		st = ps
	} else {
		st = store.NewMemoryStore()
	}

	client := transport.New(transport.Config{
		Secret:               c.Secret,
		BucketKey:            c.BucketKey,
		BucketRegion:         c.BucketRegion,
		GetSignedURLEndpoint: c.SignURLEndpoint,
		DeleteEndpoint:       c.DeleteEndpoint,
		Timeout:              c.RequestTimeout,
		MaxRetries:           c.MaxRetries,
		RetryBaseDelay:       c.RetryBaseDelay,
	}, transport.WithLogger(logger))

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMaxConcurrency(c.MaxConcurrentUploads),
	}
	if !c.StoreOriginalName {
		opts = append(opts, pipeline.WithoutOriginalFilename())
	}
	uploader := pipeline.New(client, st, opts...)

	app := &App{
		config:   c,
		log:      logger,
		client:   client,
		store:    st,
		uploader: uploader,
		out:      os.Stdout,
	}
	app.tracker = uploads.New(uploader, st,
		uploads.WithLogger(logger),
		uploads.WithSettleDelay(c.SettleDelay),
		uploads.WithReconcileWindow(c.ReconcileWindow),
		uploads.WithCompleteFunc(app.onComplete),
		uploads.WithErrorFunc(app.onError),
	)
	return app, nil
}

func (a *App) onComplete(rec *asset.Record, existed bool) {
	a.remaining.Add(-1)
	if existed {
		fmt.Fprintf(a.out, "exists   %s\n", rec.ID)
		return
	}
	fmt.Fprintf(a.out, "uploaded %s\n", rec.ID)
}

func (a *App) onError(fp string, err error) {
	a.remaining.Add(-1)
	a.failed.Add(1)
	fmt.Fprintf(a.out, "failed   %s: %v\n", fp, err)
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run dispatches the subcommand. Usage:
//
//	mediavault upload FILE...
//	mediavault delete RECORD_ID
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.tracker.Close()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	a.initSignalHandler(cancelFunc)

	if len(args) == 0 {
		return errors.New("usage: mediavault upload FILE... | delete RECORD_ID")
	}

	switch args[0] {
	case "upload":
		return a.Upload(ctx, args[1:])
	case "delete":
		if len(args) != 2 {
			return errors.New("usage: mediavault delete RECORD_ID")
		}
		return a.Delete(ctx, args[1])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// Upload submits every path and blocks until all uploads reach a
// terminal state or ctx is cancelled.
func (a *App) Upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errors.New("no files to upload")
	}

	for _, path := range paths {
		typ, err := classify(path)
		if err != nil {
			fmt.Fprintf(a.out, "failed   %s: %v\n", path, err)
			a.failed.Add(1)
			continue
		}
		// Count before submitting so a fast completion callback never
		// observes a stale counter.
		a.remaining.Add(1)
		_, started, err := a.tracker.Submit(ctx, pipeline.Source{Name: path, Path: path}, typ)
		if err != nil {
			a.remaining.Add(-1)
			fmt.Fprintf(a.out, "failed   %s: %v\n", path, err)
			a.failed.Add(1)
			continue
		}
		if !started {
			a.remaining.Add(-1)
			fmt.Fprintf(a.out, "skipped  %s: identical content already queued\n", path)
		}
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for a.remaining.Load() > 0 {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out, "cancelled")
			return fmt.Errorf("%w: %v", common.ErrUploadCancelled, ctx.Err())
		case <-ticker.C:
			a.renderProgress()
		}
	}

	if a.failed.Load() > 0 {
		return fmt.Errorf("%d upload(s) failed", a.failed.Load())
	}
	return nil
}

func (a *App) renderProgress() {
	for _, task := range a.tracker.Snapshot() {
		if task.Status == uploads.StatusUploading {
			fmt.Fprintf(a.out, "%-9s %s %.1f%%\n", task.Status, task.Name, task.Percent)
		}
	}
}

// Delete removes the record's object from the bucket and the record
// itself from the local store.
func (a *App) Delete(ctx context.Context, id string) error {
	rec, err := a.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("record %s: %w", id, err)
		}
		return err
	}

	key := asset.ObjectKey(rec.Fingerprint, rec.Extension, rec.Dimensions)
	if err := a.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "deleted  %s\n", id)
	return nil
}

// classify sniffs the file's content type to decide whether the asset
// goes through the image or plain file path.
func classify(path string) (asset.Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return asset.TypeFile, fmt.Errorf("%w: %s: %v", common.ErrUnreadableFile, path, err)
	}
	return asset.TypeForMime(asset.DetectMime(data)), nil
}
