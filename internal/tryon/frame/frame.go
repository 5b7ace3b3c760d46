// Package frame defines the image frames flowing into the pipeline.
package frame

import (
	"context"
	"errors"
	"time"
)

// ErrUnusable is wrapped by detectors for a single frame they could not
// process. The pipeline skips such frames instead of stopping.
var ErrUnusable = errors.New("frame unusable")

// Frame is one encoded image (JPEG or PNG) with its pixel size.
type Frame struct {
	Seq        uint64
	Width      int
	Height     int
	Data       []byte
	CapturedAt time.Time
}

// Source produces frames at its own cadence. Start registers deliver and
// begins acquisition; deliver must not block for long. Stop releases the
// underlying device and is safe to call more than once.
type Source interface {
	Start(ctx context.Context, deliver func(Frame)) error
	Stop() error
}
