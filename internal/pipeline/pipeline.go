package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dmitrijs2005/mediavault/internal/asset"
	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/fingerprint"
	"github.com/dmitrijs2005/mediavault/internal/imagemeta"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/store"
	"github.com/dmitrijs2005/mediavault/internal/throttle"
	"github.com/dmitrijs2005/mediavault/internal/transport"
)

// Source is one local file to upload. Either Data or Path must be set;
// Data wins when both are present.
type Source struct {
	Name string
	Data []byte
	Path string
}

// read loads the complete source content into memory. A failure wraps
// common.ErrUnreadableFile and is terminal for this upload attempt.
func (s Source) read() ([]byte, error) {
	if s.Data != nil {
		return s.Data, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrUnreadableFile, s.Path, err)
	}
	return data, nil
}

// Uploader runs upload pipelines with bounded concurrency. All runs
// across all sources share one admission throttle.
type Uploader struct {
	transport *transport.Client
	store     store.Store
	throttle  *throttle.Throttle
	log       logging.Logger

	storeOriginalFilename bool
	previewEdge           int
}

// Option customizes an Uploader.
type Option func(*Uploader)

// WithLogger sets the pipeline logger.
func WithLogger(l logging.Logger) Option {
	return func(u *Uploader) { u.log = l }
}

// WithMaxConcurrency bounds simultaneous pipeline runs.
func WithMaxConcurrency(n int) Option {
	return func(u *Uploader) { u.throttle = throttle.New(n) }
}

// WithoutOriginalFilename omits the local file name from created
// records.
func WithoutOriginalFilename() Option {
	return func(u *Uploader) { u.storeOriginalFilename = false }
}

// WithPreviewEdge sets the longest edge of generated previews.
func WithPreviewEdge(px int) Option {
	return func(u *Uploader) { u.previewEdge = px }
}

// New constructs an Uploader around a transport client and a record
// store.
func New(t *transport.Client, st store.Store, opts ...Option) *Uploader {
	u := &Uploader{
		transport:             t,
		store:                 st,
		throttle:              throttle.New(common.DefaultMaxConcurrentUploads),
		log:                   logging.NewNopLogger(),
		storeOriginalFilename: true,
		previewEdge:           imagemeta.DefaultPreviewEdge,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Progress windows: the signed-URL round trip owns the first tenth of
// the curve, the byte transfer the rest.
const (
	signPhasePercent  = 5.0
	putPhaseStart     = 10.0
	putPhaseSpan      = 90.0
	completionPercent = 100.0
)

// Upload starts one pipeline run and returns its event channel. The
// channel closes after a terminal event, or without one when ctx is
// cancelled first. Cancelling aborts whichever suspension point is
// active, including the in-flight HTTP transfer, and frees the
// admission slot.
func (u *Uploader) Upload(ctx context.Context, src Source, typ asset.Type) <-chan Event {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		u.run(ctx, src, typ, ch)
	}()
	return ch
}

// emit delivers ev unless ctx is cancelled. After cancellation no
// further events are delivered.
func emit(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// fail emits a terminal ErrorEvent, except when the run was cancelled:
// cancellation is a distinct code path that emits nothing.
func (u *Uploader) fail(ctx context.Context, ch chan<- Event, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	u.log.Error(ctx, "upload failed", "error", err)
	emit(ctx, ch, ErrorEvent{Err: err})
}

func (u *Uploader) run(ctx context.Context, src Source, typ asset.Type, ch chan<- Event) {
	// Admission control: queued runs wait here in FIFO order; a run
	// cancelled while queued never starts.
	if err := u.throttle.Acquire(ctx); err != nil {
		return
	}
	defer u.throttle.Release()

	data, err := src.read()
	if err != nil {
		u.fail(ctx, ch, err)
		return
	}

	fp := fingerprint.SumBytes(data)
	mime := asset.DetectMime(data)
	ext := asset.Extension(src.Name)

	var dims *asset.Dimensions
	if typ == asset.TypeImage {
		d, probeErr := imagemeta.Probe(data)
		if probeErr != nil {
			// Dimension probing is best effort: unsupported formats fall
			// back to the non-dimensioned identity and stay uploadable.
			u.log.Warn(ctx, "image dimension probe failed", "name", src.Name, "error", probeErr)
		} else {
			dims = d
		}
	}

	// The low-res preview is generated concurrently and merged into the
	// same stream. A failure here never fails the upload.
	var previewWG sync.WaitGroup
	if typ == asset.TypeImage {
		previewWG.Add(1)
		go func() {
			defer previewWG.Done()
			path, prevErr := imagemeta.Preview(data, u.previewEdge)
			if prevErr != nil {
				u.log.Warn(ctx, "preview generation failed", "name", src.Name, "error", prevErr)
				return
			}
			if !emit(ctx, ch, PreviewEvent{Path: path}) {
				os.Remove(path)
			}
		}()
	}
	defer previewWG.Wait()

	docID := asset.DocumentID(typ, fp, ext, dims)

	existing, err := u.store.Get(ctx, docID)
	switch {
	case err == nil:
		// Identical content is stored at most once: short-circuit
		// without touching the network.
		u.log.Info(ctx, "asset already stored", "id", docID)
		emit(ctx, ch, CompleteEvent{Record: existing, Existed: true})
		return
	case !errors.Is(err, common.ErrorNotFound):
		u.fail(ctx, ch, fmt.Errorf("dedup lookup: %w", err))
		return
	}

	total := int64(len(data))
	if !emit(ctx, ch, ProgressEvent{Stage: StageUpload, Percent: signPhasePercent, Loaded: 0, Total: total}) {
		return
	}

	objectKey := asset.ObjectKey(fp, ext, dims)
	signedURL, err := u.transport.SignedURL(ctx, objectKey, mime)
	if err != nil {
		u.fail(ctx, ch, err)
		return
	}

	err = u.transport.Put(ctx, signedURL, data, mime, func(loaded, tot int64) {
		pct := putPhaseStart
		if tot > 0 {
			pct += float64(loaded) / float64(tot) * putPhaseSpan
		}
		emit(ctx, ch, ProgressEvent{Stage: StageUpload, Percent: pct, Loaded: loaded, Total: tot})
	})
	if err != nil {
		u.fail(ctx, ch, err)
		return
	}

	if !emit(ctx, ch, ProgressEvent{Stage: StageUpload, Percent: completionPercent, Loaded: total, Total: total}) {
		return
	}

	rec := &asset.Record{
		ID:          docID,
		Type:        typ,
		Fingerprint: fp,
		Extension:   ext,
		MimeType:    mime,
		Size:        total,
		Dimensions:  dims,
	}
	if u.storeOriginalFilename {
		rec.OriginalFilename = src.Name
	}

	stored, err := u.store.Create(ctx, rec)
	if err != nil {
		u.fail(ctx, ch, fmt.Errorf("create asset record: %w", err))
		return
	}

	u.log.Info(ctx, "upload complete", "id", stored.ID, "size", total, "existed", false)
	emit(ctx, ch, CompleteEvent{Record: stored, Existed: false})
}
