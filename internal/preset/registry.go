package preset

import (
	"fmt"
	"sort"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// Registry holds exclusion presets by ID.
type Registry struct {
	presets map[string]ExclusionPreset
}

// NewRegistry creates a registry with the built-in presets.
func NewRegistry() *Registry {
	return NewRegistryWithPresets(WVGA(), LargeLowDensity(), Legacy())
}

// NewRegistryWithPresets creates a registry with custom presets (for testing).
func NewRegistryWithPresets(presets ...ExclusionPreset) *Registry {
	r := &Registry{presets: make(map[string]ExclusionPreset)}
	for _, p := range presets {
		r.Register(p)
	}
	return r
}

// Register adds a preset, replacing any with the same ID.
func (r *Registry) Register(p ExclusionPreset) {
	r.presets[p.ID()] = p
}

// Get returns a preset by ID.
func (r *Registry) Get(id string) (ExclusionPreset, bool) {
	p, ok := r.presets[id]
	return p, ok
}

// GetAll returns all presets sorted by ID.
func (r *Registry) GetAll() []ExclusionPreset {
	result := make([]ExclusionPreset, 0, len(r.presets))
	for _, id := range r.List() {
		result = append(result, r.presets[id])
	}
	return result
}

// List returns all preset IDs, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.presets))
	for id := range r.presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve concatenates the modes of the named presets, dropping duplicates.
// An unknown ID is an error.
func (r *Registry) Resolve(ids ...string) ([]domain.Mode, error) {
	var modes []domain.Mode
	for _, id := range ids {
		p, ok := r.Get(id)
		if !ok {
			return nil, fmt.Errorf("preset not found: %s (available: %v)", id, r.List())
		}
		for _, m := range p.Modes() {
			if !containsMode(modes, m) {
				modes = append(modes, m)
			}
		}
	}
	return modes, nil
}

func containsMode(modes []domain.Mode, m domain.Mode) bool {
	for _, x := range modes {
		if x.Equal(m) {
			return true
		}
	}
	return false
}
