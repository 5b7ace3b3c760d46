package framesource

import (
	"TryOnGolang/internal/tryon/frame"
	"TryOnGolang/pkg/utils"
	"context"
	"fmt"
	"sync"
	"time"
)

const stillQuality = 92

// Still delivers a single photo, shrunk to fit maxWidth x maxHeight.
type Still struct {
	mu        sync.Mutex
	data      []byte
	maxWidth  uint
	maxHeight uint
	utils     utils.IUtils
	started   bool
}

func NewStill(data []byte, maxWidth, maxHeight uint, u utils.IUtils) *Still {
	return &Still{
		data:      data,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		utils:     u,
	}
}

func (s *Still) Start(_ context.Context, deliver func(frame.Frame)) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	data, width, height, err := s.utils.FitImage(s.data, s.maxWidth, s.maxHeight, stillQuality)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	deliver(frame.Frame{
		Seq:        1,
		Width:      width,
		Height:     height,
		Data:       data,
		CapturedAt: time.Now(),
	})
	return nil
}

func (s *Still) Stop() error {
	return nil
}
