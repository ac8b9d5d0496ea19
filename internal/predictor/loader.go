package predictor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"sales-predictor/internal/common/errors"
	"sales-predictor/internal/common/logger"
	"sales-predictor/internal/common/metrics"
)

// Loader resolves the model artifact at startup: it reads the local file,
// fetching it once from remote storage when the file is missing.
type Loader struct {
	path    string
	fetcher Fetcher
	logger  logger.Logger
}

// NewLoader returns a Loader for path. fetcher may be nil, in which case a
// missing file is an error.
func NewLoader(path string, fetcher Fetcher, log logger.Logger) *Loader {
	return &Loader{
		path:    path,
		fetcher: fetcher,
		logger:  log.WithFields(map[string]interface{}{"modelPath": path}),
	}
}

// Load returns the decoded model. An existing local file is never
// re-downloaded, even if it turns out to be corrupt.
func (l *Loader) Load(ctx context.Context) (*Model, error) {
	_, err := os.Stat(l.path)
	switch {
	case err == nil:
	case stderrors.Is(err, fs.ErrNotExist):
		if err := l.fetch(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, errors.NewModelDecodeFailedError(l.path, err)
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, errors.NewModelDecodeFailedError(l.path, err)
	}
	defer f.Close()

	model, err := Decode(f)
	if err != nil {
		return nil, errors.NewModelDecodeFailedError(l.path, err)
	}

	metrics.ModelLoaded.WithLabelValues(model.Name(), model.Version()).Set(1)
	l.logger.Info("Model loaded", map[string]interface{}{
		"name":      model.Name(),
		"version":   model.Version(),
		"regressor": model.kind,
		"features":  model.features,
	})
	return model, nil
}

// fetch downloads into a temp file beside path and renames it into place,
// so a failed download never leaves a partial artifact behind.
func (l *Loader) fetch(ctx context.Context) error {
	if l.fetcher == nil {
		return errors.NewModelDownloadFailedError("none",
			fmt.Errorf("%s does not exist and no remote source is configured", l.path))
	}
	source := l.fetcher.Source()

	l.logger.Warn("Model not found locally. Downloading from remote storage...", map[string]interface{}{
		"source": source,
	})
	start := time.Now()

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.ModelFetchTotal.WithLabelValues(source, "error").Inc()
		return errors.NewModelDownloadFailedError(source, err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		metrics.ModelFetchTotal.WithLabelValues(source, "error").Inc()
		return errors.NewModelDownloadFailedError(source, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := l.fetcher.Fetch(ctx, tmp); err != nil {
		tmp.Close()
		metrics.ModelFetchTotal.WithLabelValues(source, "error").Inc()
		return errors.NewModelDownloadFailedError(source, err)
	}
	if err := tmp.Close(); err != nil {
		metrics.ModelFetchTotal.WithLabelValues(source, "error").Inc()
		return errors.NewModelDownloadFailedError(source, err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		metrics.ModelFetchTotal.WithLabelValues(source, "error").Inc()
		return errors.NewModelDownloadFailedError(source, err)
	}

	metrics.ModelFetchTotal.WithLabelValues(source, "success").Inc()
	l.logger.Info("Model downloaded", map[string]interface{}{
		"source":     source,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return nil
}
