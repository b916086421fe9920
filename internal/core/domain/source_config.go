package domain

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SourceKind tells the loader where a factor set lives.
type SourceKind string

const (
	SourceKindFile     SourceKind = "file"
	SourceKindDatabase SourceKind = "database"
	SourceKindS3       SourceKind = "s3"
)

// SettingsCategoryCostFactors is the settings category database-backed sources are stored under.
const SettingsCategoryCostFactors = "cost_factors"

// DefaultRefreshInterval applies when the configuration leaves it unset.
const DefaultRefreshInterval = 60 * time.Minute

// SourceDescriptor is one entry of the cost-factor configuration.
type SourceDescriptor struct {
	Kind    SourceKind `json:"kind"`
	Path    string     `json:"path,omitempty"` // file path relative to the data dir
	Key     string     `json:"key,omitempty"`  // settings key or S3 object key
	Bucket  string     `json:"bucket,omitempty"`
	Enabled bool       `json:"enabled"`
	Label   string     `json:"label,omitempty"`
}

// CostFactorConfig is the cost-factor section of the application configuration file.
type CostFactorConfig struct {
	ActiveSource           string                      `json:"activeSource"`
	RefreshIntervalMinutes int                         `json:"refreshIntervalMinutes"`
	Sources                map[string]SourceDescriptor `json:"sources"`
}

// RefreshInterval returns the configured interval or the default.
func (c CostFactorConfig) RefreshInterval() time.Duration {
	if c.RefreshIntervalMinutes <= 0 {
		return DefaultRefreshInterval
	}
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// Resolve finds an enabled source by name. Empty name means the active source.
func (c CostFactorConfig) Resolve(name string) (string, SourceDescriptor, error) {
	if name == "" {
		name = c.ActiveSource
	}
	if name == "" {
		return "", SourceDescriptor{}, NewConfigurationError(name, ErrSourceNotConfigured, nil)
	}
	d, ok := c.Sources[name]
	if !ok || !d.Enabled {
		return name, SourceDescriptor{}, NewConfigurationError(name, ErrSourceNotConfigured, nil)
	}
	return name, d, nil
}

// SourceInfo describes a configured source for listing.
type SourceInfo struct {
	Name    string     `json:"name"`
	Label   string     `json:"label"`
	Kind    SourceKind `json:"kind"`
	Enabled bool       `json:"enabled"`
	Active  bool       `json:"active"`
}

// ListSources returns every configured source sorted by name.
func (c CostFactorConfig) ListSources() []SourceInfo {
	out := make([]SourceInfo, 0, len(c.Sources))
	for name, d := range c.Sources {
		label := d.Label
		if label == "" {
			label = humanizeSourceName(name)
		}
		out = append(out, SourceInfo{
			Name:    name,
			Label:   label,
			Kind:    d.Kind,
			Enabled: d.Enabled,
			Active:  name == c.ActiveSource,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// humanizeSourceName turns "marshallSwift" or "rs_means" into "Marshall Swift" / "Rs Means".
func humanizeSourceName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			continue
		case i > 0 && r >= 'A' && r <= 'Z':
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(b.String())
}
