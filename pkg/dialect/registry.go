package dialect

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Dialect registry
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
	aliases    = make(map[string]string)
)

// Error reports a dialect name that is not registered.
type Error struct {
	Name string
}

func (e *Error) Error() string {
	return fmt.Sprintf("unsupported dialect: %s", e.Name)
}

// Get returns a dialect by name or alias, case-insensitively.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	d, ok := dialects[key]
	return d, ok
}

// Parse resolves a dialect selector. Unknown names yield *Error.
func Parse(name string) (*Dialect, error) {
	d, ok := Get(name)
	if !ok {
		return nil, &Error{Name: name}
	}
	return d, nil
}

// MustGet is like Get but panics for unknown names.
func MustGet(name string) *Dialect {
	d, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return d
}

// Register registers a dialect in the global registry.
func Register(d *Dialect, alias ...string) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	name := strings.ToLower(d.Name)
	dialects[name] = d
	for _, a := range alias {
		aliases[strings.ToLower(a)] = name
	}
}

// List returns all registered canonical dialect names (sorted).
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
