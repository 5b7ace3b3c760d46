package main

import (
	"TryOnGolang/internal/tryon/framesource"
	"TryOnGolang/internal/tryon/pose"
	"TryOnGolang/internal/tryon/scene"
	"TryOnGolang/internal/tryon/session"
	"TryOnGolang/pkg/utils"
	"context"
	"errors"
	"fmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"os"
	"sync"
	"time"
)

var errNoFace = errors.New("no face found in the photo")

type stillOptions struct {
	GlassesPath string
	Timeout     time.Duration
	MaxWidth    uint
	MaxHeight   uint
}

type stillResult struct {
	Session  session.Status  `json:"session"`
	Pose     *pose.Pose      `json:"pose,omitempty"`
	Snapshot *scene.Snapshot `json:"snapshot,omitempty"`
}

var stillOpts stillOptions

var stillCmd = &cobra.Command{
	Use:   "still <photo>",
	Short: "Fit glasses to a photo and print the render snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return runStill(cmd.Context(), data, stillOpts)
	},
}

func init() {
	stillCmd.Flags().StringVar(&stillOpts.GlassesPath, "glasses", "", "model path to try on (default: DEFAULT_GLASSES_PATH or the grey model)")
	stillCmd.Flags().DurationVar(&stillOpts.Timeout, "timeout", 30*time.Second, "give up after this long")
	stillCmd.Flags().UintVar(&stillOpts.MaxWidth, "max-width", 800, "downscale the photo to fit this width")
	stillCmd.Flags().UintVar(&stillOpts.MaxHeight, "max-height", 600, "downscale the photo to fit this height")
	rootCmd.AddCommand(stillCmd)
}

func runStill(ctx context.Context, data []byte, opts stillOptions) error {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var (
		mu   sync.Mutex
		last *scene.Snapshot
	)
	surface := scene.SurfaceFunc(func(snapshot scene.Snapshot) error {
		mu.Lock()
		last = &snapshot
		mu.Unlock()
		return nil
	})

	events := make(chan session.Event, 16)
	ctrl, err := newController(func(e session.Event) {
		select {
		case events <- e:
		default:
		}
	}, surface)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if opts.GlassesPath != "" {
		if err := ctrl.SelectAssetPath(ctx, opts.GlassesPath); err != nil {
			return err
		}
	}

	sess, err := ctrl.StartSession(ctx, session.ModeStill, framesource.NewStill(data, opts.MaxWidth, opts.MaxHeight, utils.New()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	// done once the model is in place and the photo went through detection
	loaded, processed := false, false
	for !loaded || !processed {
		select {
		case e := <-events:
			switch e.Kind {
			case session.EventAssetLoaded:
				loaded = true
			case session.EventAssetFailed:
				return fmt.Errorf("load %s: %w", e.Path, e.Err)
			case session.EventNoFace:
				return errNoFace
			case session.EventFailed:
				return e.Err
			}
		case <-ticker.C:
			processed = sess.Status().Pipeline.Processed > 0
		case <-ctx.Done():
			return fmt.Errorf("waiting for the try-on result: %w", ctx.Err())
		}
	}

	res := stillResult{Session: sess.Status()}
	if p, ok := sess.Pose(); ok {
		res.Pose = &p
	}
	mu.Lock()
	res.Snapshot = last
	mu.Unlock()

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
