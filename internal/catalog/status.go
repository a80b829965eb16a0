package catalog

import (
	"sort"
	"strings"
)

// Status reports one provider's availability and metadata for the status
// listing endpoint. A provider is available when every required
// configuration key is present; it may still fail at call time, which the
// dispatcher handles separately.
type Status struct {
	Name          string       `json:"name"`
	DisplayName   string       `json:"display_name"`
	Continent     string       `json:"continent"`
	CountryCode   string       `json:"country_code"`
	Capabilities  []Capability `json:"capabilities"`
	Priority      int          `json:"priority"`
	Status        string       `json:"status"`
	Available     bool         `json:"is_available"`
	MissingConfig []string     `json:"missing_config,omitempty"`
	DocsURL       string       `json:"documentation_url,omitempty"`
	SiteURL       string       `json:"site_url,omitempty"`
}

const (
	statusAvailable     = "available"
	statusMissingConfig = "missing_config"
)

// StatusFilter narrows a status listing. Zero values match everything.
type StatusFilter struct {
	Continent   string
	CountryCode string
	Capability  Capability
	// Search matches case-insensitively against name and display name.
	Search string
}

// Statuses reports every registered provider's status, filtered and sorted
// by (country, priority, name). Unavailable providers are included; the
// listing exists precisely to show which keys are missing.
func (r *Registry) Statuses(filter StatusFilter) []Status {
	var out []Status
	for _, name := range r.order {
		d := r.registrations[name].Descriptor
		if !matchStatus(d, filter) {
			continue
		}

		missing := r.missingConfig(d)
		st := Status{
			Name:         d.Name,
			DisplayName:  d.Label(),
			Continent:    d.Continent,
			CountryCode:  d.CountryCode,
			Capabilities: d.Capabilities.List(),
			Priority:     d.Priority,
			DocsURL:      d.DocsURL,
			SiteURL:      d.SiteURL,
		}
		if len(missing) > 0 {
			st.Status = statusMissingConfig
			st.MissingConfig = missing
		} else {
			st.Status = statusAvailable
			st.Available = true
		}
		out = append(out, st)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CountryCode != out[j].CountryCode {
			return out[i].CountryCode < out[j].CountryCode
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func matchStatus(d Descriptor, f StatusFilter) bool {
	if f.Continent != "" && !strings.EqualFold(d.Continent, f.Continent) {
		return false
	}
	if f.CountryCode != "" && !strings.EqualFold(d.CountryCode, f.CountryCode) {
		return false
	}
	if f.Capability != "" && !d.Capabilities.Has(f.Capability) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(d.Name), needle) &&
			!strings.Contains(strings.ToLower(d.DisplayName), needle) {
			return false
		}
	}
	return true
}
