// Package pipeline orchestrates one asset upload: fingerprint, dedup
// check against the record store, signed-URL acquisition, byte transfer
// and record creation, reported as an ordered stream of events.
package pipeline

import "github.com/dmitrijs2005/mediavault/internal/asset"

// Stage labels which transfer a progress event belongs to.
type Stage string

const (
	StageUpload   Stage = "upload"
	StageDownload Stage = "download"
)

// Event is the tagged union flowing from the pipeline to its observer.
// For one upload, events are strictly ordered: progress percent is
// non-decreasing and nothing follows a Complete or Error event.
type Event interface{ isEvent() }

// ProgressEvent reports overall upload progress. The signed-URL phase
// owns 0–10% and the byte transfer 10–100%, so observers see one
// continuous curve.
type ProgressEvent struct {
	Stage   Stage
	Percent float64
	Loaded  int64
	Total   int64
}

// PreviewEvent carries the path of a generated low-resolution preview.
// It is a side channel merged into the main stream; its absence is not
// an error.
type PreviewEvent struct {
	Path string
}

// CompleteEvent terminates a successful upload. Existed is true when
// identical content was already stored and no bytes were transferred.
type CompleteEvent struct {
	Record  *asset.Record
	Existed bool
}

// ErrorEvent terminates a failed upload.
type ErrorEvent struct {
	Err error
}

func (ProgressEvent) isEvent() {}
func (PreviewEvent) isEvent()  {}
func (CompleteEvent) isEvent() {}
func (ErrorEvent) isEvent()    {}
