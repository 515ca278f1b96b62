package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/asset"
	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/fingerprint"
	"github.com/dmitrijs2005/mediavault/internal/store"
	"github.com/dmitrijs2005/mediavault/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness bundles a fake signer endpoint and a fake object store PUT
// target behind one httptest server.
type harness struct {
	ts       *httptest.Server
	signs    atomic.Int32
	puts     atomic.Int32
	lastBody atomic.Value // []byte

	blockPut chan struct{} // non-nil: PUT blocks until closed or request cancelled
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{}

	mux := http.NewServeMux()
	mux.HandleFunc("/sign", func(w http.ResponseWriter, r *http.Request) {
		h.signs.Add(1)
		var req struct {
			FileName string `json:"fileName"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]string{"url": h.ts.URL + "/put/" + req.FileName})
	})
	mux.HandleFunc("/put/", func(w http.ResponseWriter, r *http.Request) {
		if h.blockPut != nil {
			select {
			case <-h.blockPut:
			case <-r.Context().Done():
				return
			}
		}
		h.puts.Add(1)
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		h.lastBody.Store(buf.Bytes())
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/delete", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h.ts = httptest.NewServer(mux)
	t.Cleanup(h.ts.Close)
	return h
}

func (h *harness) config() transport.Config {
	return transport.Config{
		Secret:               "s3cret",
		BucketKey:            "media",
		BucketRegion:         "us-east-1",
		GetSignedURLEndpoint: h.ts.URL + "/sign",
		DeleteEndpoint:       h.ts.URL + "/delete",
		RetryBaseDelay:       time.Millisecond,
	}
}

func pngBytes(t *testing.T, w, hgt int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, hgt))
	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 3), B: 99, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// collect drains the event stream into categorized slices.
type collected struct {
	progress []ProgressEvent
	previews []PreviewEvent
	complete *CompleteEvent
	err      *ErrorEvent
}

func collect(t *testing.T, ch <-chan Event) collected {
	t.Helper()
	var c collected
	for ev := range ch {
		switch e := ev.(type) {
		case ProgressEvent:
			require.Nil(t, c.complete, "progress after complete")
			require.Nil(t, c.err, "progress after error")
			c.progress = append(c.progress, e)
		case PreviewEvent:
			c.previews = append(c.previews, e)
		case CompleteEvent:
			ce := e
			c.complete = &ce
		case ErrorEvent:
			ee := e
			c.err = &ee
		}
	}
	return c
}

func TestUpload_ImageEndToEnd(t *testing.T) {
	h := newHarness(t)
	st := store.NewMemoryStore()
	u := New(transport.New(h.config()), st)

	data := pngBytes(t, 800, 600)
	src := Source{Name: "photo.png", Data: data}

	c := collect(t, u.Upload(context.Background(), src, asset.TypeImage))

	require.Nil(t, c.err)
	require.NotNil(t, c.complete)
	assert.False(t, c.complete.Existed)

	fp := fingerprint.SumBytes(data)
	wantID := "image-" + fp + "-800x600-png"
	assert.Equal(t, wantID, c.complete.Record.ID)
	assert.Equal(t, asset.TypeImage, c.complete.Record.Type)
	assert.Equal(t, "image/png", c.complete.Record.MimeType)
	assert.Equal(t, int64(len(data)), c.complete.Record.Size)
	assert.Equal(t, "photo.png", c.complete.Record.OriginalFilename)

	require.NotNil(t, c.complete.Record.Dimensions)
	assert.Equal(t, 800, c.complete.Record.Dimensions.Width)
	assert.Equal(t, 600, c.complete.Record.Dimensions.Height)
	assert.InDelta(t, 1.3333, c.complete.Record.Dimensions.AspectRatio, 0.001)

	// One continuous, non-decreasing progress curve reaching 100.
	require.NotEmpty(t, c.progress)
	last := -1.0
	for _, p := range c.progress {
		assert.GreaterOrEqual(t, p.Percent, last)
		last = p.Percent
	}
	assert.Equal(t, 100.0, last)

	assert.Equal(t, int32(1), h.puts.Load())
	assert.Equal(t, data, h.lastBody.Load().([]byte))

	// The bytes went to the content-addressed object key.
	stored, err := st.Get(context.Background(), wantID)
	require.NoError(t, err)
	assert.Equal(t, fp, stored.Fingerprint)
}

func TestUpload_DuplicateContentShortCircuits(t *testing.T) {
	h := newHarness(t)
	st := store.NewMemoryStore()
	u := New(transport.New(h.config()), st)

	data := pngBytes(t, 800, 600)
	src := Source{Name: "photo.png", Data: data}

	first := collect(t, u.Upload(context.Background(), src, asset.TypeImage))
	require.NotNil(t, first.complete)
	require.False(t, first.complete.Existed)
	require.Equal(t, int32(1), h.puts.Load())

	// A different local file with the same bytes must not re-upload.
	second := collect(t, u.Upload(context.Background(), Source{Name: "copy.png", Data: data}, asset.TypeImage))
	require.Nil(t, second.err)
	require.NotNil(t, second.complete)
	assert.True(t, second.complete.Existed)
	assert.Equal(t, first.complete.Record.ID, second.complete.Record.ID)
	assert.Equal(t, int32(1), h.puts.Load(), "no additional byte transfer for duplicate content")
	assert.Equal(t, int32(1), h.signs.Load(), "no additional signed URL for duplicate content")
}

func TestUpload_MalformedSignedURL(t *testing.T) {
	var puts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sign", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "not a url"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		puts.Add(1)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := store.NewMemoryStore()
	cfg := transport.Config{
		Secret: "s", BucketKey: "b", BucketRegion: "r",
		GetSignedURLEndpoint: ts.URL + "/sign",
	}
	u := New(transport.New(cfg), st)

	c := collect(t, u.Upload(context.Background(), Source{Name: "f.bin", Data: []byte("data")}, asset.TypeFile))

	require.NotNil(t, c.err)
	assert.ErrorIs(t, c.err.Err, common.ErrInvalidSignedURL)
	assert.Nil(t, c.complete)
	assert.Equal(t, int32(0), puts.Load(), "no PUT attempted")
	assert.Equal(t, 0, st.Len(), "no record created")
}

func TestUpload_UnreadableFile(t *testing.T) {
	h := newHarness(t)
	u := New(transport.New(h.config()), store.NewMemoryStore())

	c := collect(t, u.Upload(context.Background(), Source{Name: "gone.bin", Path: "/nonexistent/gone.bin"}, asset.TypeFile))

	require.NotNil(t, c.err)
	assert.ErrorIs(t, c.err.Err, common.ErrUnreadableFile)
	assert.Equal(t, int32(0), h.signs.Load())
}

func TestUpload_ImageWithUnprobeableDimensionsFallsBack(t *testing.T) {
	h := newHarness(t)
	st := store.NewMemoryStore()
	u := New(transport.New(h.config()), st)

	data := []byte("not really an image, still uploadable")
	c := collect(t, u.Upload(context.Background(), Source{Name: "odd.img", Data: data}, asset.TypeImage))

	require.Nil(t, c.err)
	require.NotNil(t, c.complete)
	fp := fingerprint.SumBytes(data)
	assert.Equal(t, "file-"+fp+"-img", c.complete.Record.ID)
	assert.Nil(t, c.complete.Record.Dimensions)
}

func TestUpload_EmitsPreviewForImages(t *testing.T) {
	h := newHarness(t)
	u := New(transport.New(h.config()), store.NewMemoryStore())

	c := collect(t, u.Upload(context.Background(), Source{Name: "p.png", Data: pngBytes(t, 300, 200)}, asset.TypeImage))

	require.NotNil(t, c.complete)
	require.Len(t, c.previews, 1)
	assert.FileExists(t, c.previews[0].Path)
}

func TestUpload_CancelMidTransfer(t *testing.T) {
	h := newHarness(t)
	h.blockPut = make(chan struct{})

	st := store.NewMemoryStore()
	u := New(transport.New(h.config()), st)

	ctx, cancel := context.WithCancel(context.Background())
	ch := u.Upload(ctx, Source{Name: "big.bin", Data: bytes.Repeat([]byte("x"), 4096)}, asset.TypeFile)

	// Wait for the signed-URL phase to pass, then cancel during the PUT.
	deadline := time.After(2 * time.Second)
	for h.signs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("signed URL was never requested")
		case <-time.After(time.Millisecond):
		}
	}
	time.Sleep(10 * time.Millisecond)
	cancel()

	c := collect(t, ch)
	assert.Nil(t, c.complete, "no Complete after cancellation")
	assert.Nil(t, c.err, "no Error after cancellation")
	assert.Equal(t, int32(0), h.puts.Load(), "transfer aborted before completion")
	assert.Equal(t, 0, st.Len())

	// The admission slot was freed: a fresh upload runs immediately.
	close(h.blockPut)
	c2 := collect(t, u.Upload(context.Background(), Source{Name: "ok.bin", Data: []byte("fresh")}, asset.TypeFile))
	require.NotNil(t, c2.complete)
}

func TestUpload_ThrottleBoundsConcurrentRuns(t *testing.T) {
	h := newHarness(t)
	h.blockPut = make(chan struct{})

	st := store.NewMemoryStore()
	u := New(transport.New(h.config()), st, WithMaxConcurrency(2))

	var chans []<-chan Event
	for i := 0; i < 5; i++ {
		data := []byte{byte(i), 1, 2, 3}
		chans = append(chans, u.Upload(context.Background(), Source{Name: "f.bin", Data: data}, asset.TypeFile))
	}

	// With concurrency 2 and PUTs blocked, at most two runs can have
	// requested a signed URL and be mid-transfer.
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, h.signs.Load(), int32(2))

	close(h.blockPut)
	for _, ch := range chans {
		c := collect(t, ch)
		require.Nil(t, c.err)
		require.NotNil(t, c.complete)
	}
	assert.Equal(t, int32(5), h.puts.Load())
	assert.Equal(t, 5, st.Len())
}
