package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/chip-tracker/game/engine"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidPreset  = errors.New("invalid preset")
)

// DefaultPresetID names the built-in preset used when no preset directory
// provides one.
const DefaultPresetID = "classic"

// Preset is a named set of table settings.
type Preset struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	StartingChips decimal.Decimal `json:"starting_chips"`
	SmallBlind    decimal.Decimal `json:"small_blind"`
	BigBlind      decimal.Decimal `json:"big_blind"`
}

// Settings converts the preset into engine settings.
func (p *Preset) Settings() engine.Settings {
	return engine.Settings{
		StartingChips: p.StartingChips,
		SmallBlind:    p.SmallBlind,
		BigBlind:      p.BigBlind,
	}
}

// presetFile is the on-disk shape. Amounts are strings so they are parsed
// exactly.
type presetFile struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	StartingChips string `yaml:"starting_chips"`
	SmallBlind    string `yaml:"small_blind"`
	BigBlind      string `yaml:"big_blind"`
}

// Manager loads table presets from a directory of YAML files and caches
// them.
type Manager struct {
	presetDir     string
	defaultPreset *Preset
	presets       map[string]*Preset
	mu            sync.RWMutex
}

// NewManager creates a preset manager. An empty dir means built-in presets
// only.
func NewManager(presetDir string) (*Manager, error) {
	if presetDir != "" {
		if _, err := os.Stat(presetDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("preset directory does not exist: %s", presetDir)
		}
	}

	m := &Manager{
		presetDir: presetDir,
		presets:   make(map[string]*Preset),
	}

	if err := m.loadDefaultPreset(); err != nil {
		return nil, fmt.Errorf("failed to load default preset: %w", err)
	}

	return m, nil
}

// LoadPreset returns the preset with the given ID, reading it from disk on
// first use.
func (m *Manager) LoadPreset(id string) (*Preset, error) {
	id = strings.TrimSuffix(strings.TrimSpace(id), ".yaml")

	m.mu.RLock()
	if p, ok := m.presets[id]; ok {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.presets[id]; ok {
		return p, nil
	}

	p, err := m.readPreset(id)
	if errors.Is(err, ErrPresetNotFound) && id == DefaultPresetID {
		p, err = BuiltinPreset(), nil
	}
	if err != nil {
		return nil, err
	}

	m.presets[id] = p
	return p, nil
}

// ListPresets returns every valid preset, sorted by ID. Files that fail to
// parse are skipped.
func (m *Manager) ListPresets() ([]*Preset, error) {
	ids := map[string]bool{DefaultPresetID: true}

	if m.presetDir != "" {
		entries, err := os.ReadDir(m.presetDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read preset directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
				continue
			}
			ids[strings.TrimSuffix(entry.Name(), ".yaml")] = true
		}
	}

	var presets []*Preset
	for id := range ids {
		p, err := m.LoadPreset(id)
		if err != nil {
			continue
		}
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].ID < presets[j].ID })
	return presets, nil
}

// GetDefault returns the preset new rooms start with.
func (m *Manager) GetDefault() *Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault makes the named preset the default for new rooms.
func (m *Manager) SetDefault(id string) error {
	p, err := m.LoadPreset(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = p
	return nil
}

func (m *Manager) loadDefaultPreset() error {
	p, err := m.LoadPreset(DefaultPresetID)
	if err != nil {
		return err
	}
	m.defaultPreset = p
	return nil
}

// readPreset loads one preset file. Callers hold m.mu.
func (m *Manager) readPreset(id string) (*Preset, error) {
	if m.presetDir == "" || id == "" || strings.ContainsAny(id, `/\`) {
		return nil, ErrPresetNotFound
	}
	p, err := LoadPresetFile(filepath.Join(m.presetDir, id+".yaml"))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LoadPresetFile reads and validates a single preset file. The preset ID is
// the file name without its extension.
func LoadPresetFile(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPresetNotFound
		}
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var raw presetFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidPreset, filepath.Base(path), err)
	}

	p := &Preset{
		ID:          strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Name:        raw.Name,
		Description: raw.Description,
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: config validation: name is required", ErrInvalidPreset)
	}
	fields := []struct {
		key string
		in  string
		out *decimal.Decimal
	}{
		{"starting_chips", raw.StartingChips, &p.StartingChips},
		{"small_blind", raw.SmallBlind, &p.SmallBlind},
		{"big_blind", raw.BigBlind, &p.BigBlind},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(strings.TrimSpace(f.in))
		if err != nil {
			return nil, fmt.Errorf("%w: config validation: %s must be a decimal, got %q", ErrInvalidPreset, f.key, f.in)
		}
		*f.out = v
	}
	if err := p.Settings().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	return p, nil
}

// BuiltinPreset returns the classic $10.00 stack with $0.10/$0.20 blinds.
func BuiltinPreset() *Preset {
	s := engine.DefaultSettings()
	return &Preset{
		ID:            DefaultPresetID,
		Name:          "Classic",
		Description:   "Ten dollar stacks with 10/20 cent blinds",
		StartingChips: s.StartingChips,
		SmallBlind:    s.SmallBlind,
		BigBlind:      s.BigBlind,
	}
}
