package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	"github.com/nfnt/resize"
	"github.com/oklog/ulid/v2"
)

var ErrEmptyImage = errors.New("empty image")

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ImageSize(imageData []byte) (int, int, error)
	FitImage(imageData []byte, maxWidth, maxHeight uint, quality int) ([]byte, int, int, error)
}

type utils struct {
	interpolation resize.InterpolationFunction
}

func New() IUtils {
	return &utils{
		interpolation: resize.Bilinear,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// ImageSize reads the pixel size from the image header without decoding it.
func (u *utils) ImageSize(imageData []byte) (int, int, error) {
	if len(imageData) == 0 {
		return 0, 0, ErrEmptyImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return 0, 0, err
	}

	return cfg.Width, cfg.Height, nil
}

// FitImage shrinks an image to fit within maxWidth x maxHeight keeping its
// aspect ratio and re-encodes it as JPEG. Images that already fit are
// returned unchanged.
func (u *utils) FitImage(imageData []byte, maxWidth, maxHeight uint, quality int) ([]byte, int, int, error) {
	if len(imageData) == 0 {
		return nil, 0, 0, ErrEmptyImage
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	if uint(bounds.Dx()) <= maxWidth && uint(bounds.Dy()) <= maxHeight {
		return imageData, bounds.Dx(), bounds.Dy(), nil
	}

	resized := resize.Thumbnail(maxWidth, maxHeight, img, u.interpolation)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, err
	}

	size := resized.Bounds()
	return buf.Bytes(), size.Dx(), size.Dy(), nil
}
