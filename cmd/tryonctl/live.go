package main

import (
	"TryOnGolang/internal/tryon/framesource/camera"
	"TryOnGolang/internal/tryon/scene"
	"TryOnGolang/internal/tryon/session"
	"context"
	"fmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"os"
	"time"
)

type liveOptions struct {
	GlassesPath string
	Duration    time.Duration
	Stream      bool
	Camera      camera.Config
}

var liveOpts = liveOptions{Camera: camera.DefaultConfig()}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Track a webcam feed and report the glasses pose",
	Long: "Run a video session against a local camera. Render snapshots are written to stdout as " +
		"JSON lines with --stream; progress goes to stderr. Stops on Ctrl+C or after --duration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLive(cmd.Context(), liveOpts)
	},
}

func init() {
	liveCmd.Flags().StringVar(&liveOpts.GlassesPath, "glasses", "", "model path to try on")
	liveCmd.Flags().DurationVar(&liveOpts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	liveCmd.Flags().BoolVar(&liveOpts.Stream, "stream", false, "write every render snapshot to stdout")
	liveCmd.Flags().IntVar(&liveOpts.Camera.DeviceID, "device", liveOpts.Camera.DeviceID, "camera device id")
	liveCmd.Flags().IntVar(&liveOpts.Camera.TargetFPS, "fps", liveOpts.Camera.TargetFPS, "frames per second to capture")
	liveCmd.Flags().IntVar(&liveOpts.Camera.Width, "width", liveOpts.Camera.Width, "requested capture width")
	liveCmd.Flags().IntVar(&liveOpts.Camera.Height, "height", liveOpts.Camera.Height, "requested capture height")
	rootCmd.AddCommand(liveCmd)
}

func runLive(ctx context.Context, opts liveOptions) error {
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Tracking"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
	)
	defer bar.Finish()

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	surface := scene.SurfaceFunc(func(snapshot scene.Snapshot) error {
		bar.Add(1)
		if opts.Stream {
			return enc.Encode(snapshot)
		}
		return nil
	})

	failed := make(chan error, 1)
	ctrl, err := newController(func(e session.Event) {
		switch e.Kind {
		case session.EventAssetLoaded:
			bar.Describe(fmt.Sprintf("Tracking %s", e.Path))
		case session.EventAssetFailed:
			logger.WithField("path", e.Path).Warnf("Model failed to load: %v", e.Err)
		case session.EventFailed:
			select {
			case failed <- e.Err:
			default:
			}
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

	sess, err := ctrl.StartSession(ctx, session.ModeVideo, camera.New(opts.Camera, logger))
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-failed:
		return err
	}

	status := sess.Status()
	if err := ctrl.StopSession(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nframes submitted=%d processed=%d dropped=%d\n",
		status.Pipeline.Submitted, status.Pipeline.Processed, status.Pipeline.Dropped)
	return nil
}
