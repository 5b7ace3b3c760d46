// Package framesource holds frame sources fed by clients.
package framesource

import (
	"TryOnGolang/internal/tryon/frame"
	"TryOnGolang/pkg/utils"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNotStarted     = errors.New("frame source not started")
	ErrStopped        = errors.New("frame source stopped")
	ErrAlreadyStarted = errors.New("frame source already started")
	ErrInvalidImage   = errors.New("frame is not a decodable image")
)

// Push is a video source whose frames are pushed by a client connection.
type Push struct {
	mu      sync.Mutex
	utils   utils.IUtils
	deliver func(frame.Frame)
	seq     uint64
	started bool
	stopped bool
}

func NewPush(u utils.IUtils) *Push {
	return &Push{utils: u}
}

func (p *Push) Start(_ context.Context, deliver func(frame.Frame)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.stopped:
		return ErrStopped
	case p.started:
		return ErrAlreadyStarted
	}
	p.deliver = deliver
	p.started = true
	return nil
}

// Push hands one encoded image to the pipeline.
func (p *Push) Push(data []byte) error {
	width, height, err := p.utils.ImageSize(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	p.seq++
	f := frame.Frame{
		Seq:        p.seq,
		Width:      width,
		Height:     height,
		Data:       data,
		CapturedAt: time.Now(),
	}
	deliver := p.deliver
	p.mu.Unlock()

	deliver(f)
	return nil
}

func (p *Push) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true
	p.deliver = nil
	return nil
}
