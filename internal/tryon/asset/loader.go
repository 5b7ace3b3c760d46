package asset

import (
	s3Pkg "TryOnGolang/pkg/s3"
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// FileLoader reads models from a local directory, typically the directory
// the web client is served from. Source is publicPath joined with the model
// path so the renderer can fetch the same file.
type FileLoader struct {
	root       string
	publicPath string
	log        *logrus.Logger
}

func NewFileLoader(root, publicPath string, log *logrus.Logger) *FileLoader {
	return &FileLoader{
		root:       root,
		publicPath: strings.TrimSuffix(publicPath, "/"),
		log:        log,
	}
}

func (l *FileLoader) Load(ctx context.Context, modelPath string) (Asset, error) {
	clean, err := cleanModelPath(modelPath)
	if err != nil {
		return Asset{}, err
	}
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	data, err := os.ReadFile(filepath.Join(l.root, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, modelPath)
		}
		return Asset{}, fmt.Errorf("read model %s: %w", modelPath, err)
	}

	width, err := ModelWidth(data)
	if err != nil {
		return Asset{}, fmt.Errorf("measure model %s: %w", modelPath, err)
	}

	l.log.WithFields(logrus.Fields{
		"path":  modelPath,
		"bytes": len(data),
		"width": width,
	}).Debug("Loaded model from disk")

	return Asset{
		Path:   modelPath,
		Source: l.publicPath + "/" + clean,
		Width:  width,
	}, nil
}

// ObjectStore is the bucket a S3Loader reads from.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PresignUrl(fileUrl string) (string, error)
}

// S3Loader reads models from a bucket; the model path is the object key.
// Source is a presigned URL.
type S3Loader struct {
	store ObjectStore
	log   *logrus.Logger
}

func NewS3Loader(store ObjectStore, log *logrus.Logger) *S3Loader {
	return &S3Loader{
		store: store,
		log:   log,
	}
}

func (l *S3Loader) Load(ctx context.Context, modelPath string) (Asset, error) {
	key, err := cleanModelPath(modelPath)
	if err != nil {
		return Asset{}, err
	}

	data, err := l.store.GetObject(ctx, key)
	if errors.Is(err, s3Pkg.ErrObjectNotFound) {
		return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, modelPath)
	}
	if err != nil {
		return Asset{}, fmt.Errorf("fetch model %s: %w", modelPath, err)
	}

	width, err := ModelWidth(data)
	if err != nil {
		return Asset{}, fmt.Errorf("measure model %s: %w", modelPath, err)
	}

	source, err := l.store.PresignUrl(key)
	if err != nil {
		return Asset{}, fmt.Errorf("presign model %s: %w", modelPath, err)
	}

	l.log.WithFields(logrus.Fields{
		"path":  modelPath,
		"bytes": len(data),
		"width": width,
	}).Debug("Loaded model from bucket")

	return Asset{
		Path:   modelPath,
		Source: source,
		Width:  width,
	}, nil
}

// Cache stores encoded asset metadata.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
}

// CachedLoader remembers measured assets so repeated selections of the same
// model skip the fetch. Cache failures fall through to the wrapped loader.
type CachedLoader struct {
	next   Loader
	cache  Cache
	ttl    time.Duration
	prefix string
	log    *logrus.Logger
}

func NewCachedLoader(next Loader, cache Cache, ttl time.Duration, log *logrus.Logger) *CachedLoader {
	return &CachedLoader{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		prefix: "tryon:asset:",
		log:    log,
	}
}

func (l *CachedLoader) Load(ctx context.Context, modelPath string) (Asset, error) {
	key := l.prefix + modelPath

	if raw, err := l.cache.Get(ctx, key); err == nil {
		var a Asset
		if err := json.UnmarshalFromString(raw, &a); err == nil && a.Width > 0 {
			return a, nil
		}
		l.log.WithField("path", modelPath).Warn("Ignoring malformed cached model metadata")
	}

	a, err := l.next.Load(ctx, modelPath)
	if err != nil {
		return Asset{}, err
	}

	raw, err := json.MarshalToString(a)
	if err == nil {
		err = l.cache.Set(ctx, key, raw, l.ttl)
	}
	if err != nil {
		l.log.WithFields(logrus.Fields{
			"path":  modelPath,
			"error": err.Error(),
		}).Warn("Failed to cache model metadata")
	}

	return a, nil
}

func cleanModelPath(p string) (string, error) {
	if p == "" || strings.ContainsRune(p, 0) {
		return "", ErrInvalidPath
	}
	clean := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
	if clean == "" || clean == "." {
		return "", ErrInvalidPath
	}
	return clean, nil
}
