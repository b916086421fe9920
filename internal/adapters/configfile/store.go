package configfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cost-engine-service/internal/core/domain"
)

const costFactorsSection = "costFactors"

// Store reads and writes the cost-factor section of the application
// configuration file. Other top-level sections are preserved on write.
type Store struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	cached  *domain.CostFactorConfig
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the cost-factor configuration, re-reading the file only when
// its modification time changed.
func (s *Store) Load(ctx context.Context) (domain.CostFactorConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.CostFactorConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.CostFactorConfig{}, domain.NewConfigurationError("", domain.ErrSourceNotConfigured,
				fmt.Errorf("configuration file %s does not exist", s.path))
		}
		return domain.CostFactorConfig{}, fmt.Errorf("stat %s: %w", s.path, err)
	}
	if s.cached != nil && info.ModTime().Equal(s.modTime) {
		return *s.cached, nil
	}

	sections, err := s.readSections()
	if err != nil {
		return domain.CostFactorConfig{}, err
	}

	var cfg domain.CostFactorConfig
	if raw, ok := sections[costFactorsSection]; ok {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return domain.CostFactorConfig{}, domain.NewConfigurationError("", domain.ErrMalformedFactorSet,
				fmt.Errorf("decode %s section: %w", costFactorsSection, err))
		}
	}

	s.cached = &cfg
	s.modTime = info.ModTime()
	return cfg, nil
}

func (s *Store) readSections() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	sections := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, domain.NewConfigurationError("", domain.ErrMalformedFactorSet,
			fmt.Errorf("decode %s: %w", s.path, err))
	}
	return sections, nil
}

// SetActiveSource rewrites the file with a new active source. The write goes
// to a temp file in the same directory and is renamed over the original.
func (s *Store) SetActiveSource(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sections, err := s.readSections()
	if err != nil {
		return err
	}

	var cfg domain.CostFactorConfig
	if raw, ok := sections[costFactorsSection]; ok {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("decode %s section: %w", costFactorsSection, err)
		}
	}
	cfg.ActiveSource = source

	section, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode %s section: %w", costFactorsSection, err)
	}
	sections[costFactorsSection] = section

	out, err := json.MarshalIndent(sections, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	if err := writeAtomic(s.path, out); err != nil {
		return err
	}

	s.cached = nil
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
