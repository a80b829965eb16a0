package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry holds every registered provider, keyed by name. Registrations
// happen once at startup; afterwards the registry only answers queries.
// Adapter construction is lazy and memoized by (name, config fingerprint),
// so re-resolving with different configuration yields a fresh instance
// instead of mutating a shared one.
type Registry struct {
	logger *slog.Logger
	env    map[string]string

	registrations map[string]Registration
	order         []string

	mu       sync.Mutex
	adapters map[string]Adapter // key: name + "\x00" + fingerprint
	broken   map[string]string  // name -> construction error, excluded like missing config
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry builds an empty registry over the given environment snapshot.
// The snapshot is read once at startup; the registry never touches the live
// environment.
func NewRegistry(env map[string]string, opts ...Option) *Registry {
	r := &Registry{
		logger:        slog.Default(),
		env:           env,
		registrations: make(map[string]Registration),
		adapters:      make(map[string]Adapter),
		broken:        make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a provider registration. Duplicate names are rejected;
// every provider has exactly one identity in the catalog.
func (r *Registry) Register(reg Registration) error {
	name := reg.Descriptor.Name
	if name == "" {
		return fmt.Errorf("catalog: registration with empty name")
	}
	if reg.Factory == nil {
		return fmt.Errorf("catalog: provider %s registered without a factory", name)
	}
	if _, exists := r.registrations[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}
	r.registrations[name] = reg
	r.order = append(r.order, name)
	return nil
}

// MustRegister panics on registration failure. Startup wiring uses it; a
// duplicate provider name is a programming error, not a runtime condition.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Resolve returns the adapters for the given country and capability, ordered
// by descriptor priority (ties broken by name for determinism). Providers
// that do not declare the capability, or whose required configuration is
// missing, are silently excluded: no matching provider is an empty slice,
// never an error. The dispatcher decides whether that is fatal.
func (r *Registry) Resolve(countryCode string, capability Capability) []Adapter {
	cc := strings.ToUpper(countryCode)

	var candidates []Descriptor
	for _, name := range r.order {
		d := r.registrations[name].Descriptor
		if d.CountryCode != cc {
			continue
		}
		if !d.Capabilities.Has(capability) {
			continue
		}
		if len(r.missingConfig(d)) > 0 {
			continue
		}
		candidates = append(candidates, d)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].Name < candidates[j].Name
	})

	adapters := make([]Adapter, 0, len(candidates))
	for _, d := range candidates {
		adapter, err := r.adapter(d)
		if err != nil {
			// Construction failure counts as misconfiguration: the
			// provider is excluded and reported through Statuses.
			r.logger.Warn("provider construction failed, excluding",
				"provider", d.Name,
				"error", err,
			)
			continue
		}
		adapters = append(adapters, adapter)
	}
	return adapters
}

// Lookup returns the registration for a provider name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	reg, ok := r.registrations[name]
	return reg, ok
}

// Countries returns the distinct country codes with at least one registered
// provider, sorted.
func (r *Registry) Countries() []string {
	seen := make(map[string]struct{})
	for _, name := range r.order {
		seen[r.registrations[name].Descriptor.CountryCode] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cc := range seen {
		out = append(out, cc)
	}
	sort.Strings(out)
	return out
}

// adapter returns the memoized adapter for the descriptor, constructing it
// on first use. The memo key includes the configuration fingerprint, so a
// registry rebuilt over a different environment snapshot cannot hand back a
// stale instance.
func (r *Registry) adapter(d Descriptor) (Adapter, error) {
	settings := r.settings(d)
	key := d.Name + "\x00" + fingerprint(d, settings)

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[key]; ok {
		return a, nil
	}
	if msg, ok := r.broken[key]; ok {
		return nil, fmt.Errorf("catalog: provider %s unavailable: %s", d.Name, msg)
	}

	a, err := r.registrations[d.Name].Factory(settings)
	if err != nil {
		r.broken[key] = err.Error()
		return nil, fmt.Errorf("catalog: construct provider %s: %w", d.Name, err)
	}
	r.adapters[key] = a
	return a, nil
}

// settings extracts the descriptor's declared keys from the environment
// snapshot. Undeclared keys never reach an adapter.
func (r *Registry) settings(d Descriptor) Settings {
	values := make(map[string]string)
	for _, key := range d.ConfigKeys() {
		if v, ok := r.env[key]; ok {
			values[key] = v
		}
	}
	return NewSettings(values)
}

// missingConfig lists the required keys absent from the environment.
func (r *Registry) missingConfig(d Descriptor) []string {
	var missing []string
	for _, key := range d.RequiredConfig {
		if r.env[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// fingerprint hashes the declared configuration values in sorted key order.
// Absent keys hash as empty, so adding an optional key later changes the
// fingerprint and forces a fresh adapter.
func fingerprint(d Descriptor, s Settings) string {
	keys := d.ConfigKeys()
	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(s.Get(k)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
