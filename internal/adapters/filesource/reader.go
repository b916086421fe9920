package filesource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cost-engine-service/internal/core/domain"
)

// Reader loads factor-set documents from JSON files under a data directory.
type Reader struct {
	dataDir string
}

func NewReader(dataDir string) *Reader {
	return &Reader{dataDir: dataDir}
}

// ReadFactorSet reads desc.Path (or "<name>.json") relative to the data directory.
func (r *Reader) ReadFactorSet(ctx context.Context, name string, desc domain.SourceDescriptor) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := desc.Path
	if p == "" {
		p = name + ".json"
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.dataDir, p)
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file %s does not exist", domain.ErrSourceNotConfigured, p)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return raw, nil
}
