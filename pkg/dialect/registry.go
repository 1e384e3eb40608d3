package dialect

import (
	"sort"
	"strings"
	"sync"
)

// Profile registry
var (
	profilesMu sync.RWMutex
	profiles   = make(map[string]*Profile)
)

// Get returns a profile by name.
func Get(name string) (*Profile, bool) {
	profilesMu.RLock()
	defer profilesMu.RUnlock()
	p, ok := profiles[strings.ToLower(name)]
	return p, ok
}

// Register registers a profile in the global registry.
// Called by dialect implementations in their init() functions.
func Register(p *Profile) {
	if err := p.Validate(); err != nil {
		panic(err)
	}
	profilesMu.Lock()
	defer profilesMu.Unlock()
	profiles[strings.ToLower(p.Name)] = p
}

// List returns all registered profile names (sorted).
func List() []string {
	profilesMu.RLock()
	defer profilesMu.RUnlock()
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
