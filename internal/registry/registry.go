// Package registry loads and serves the per-source-system field and status
// mappings that drive import transformation. Profiles are read once at startup
// and are immutable afterwards.
package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/careops/measuresync/internal/domain"
)

// MeasureMapping binds one source column to a canonical measure. Field selects
// which record attribute the column feeds; it defaults to "status".
type MeasureMapping struct {
	RequestType    string `mapstructure:"requestType"`
	QualityMeasure string `mapstructure:"qualityMeasure"`
	Field          string `mapstructure:"field"`
}

// Measure record attributes a mapped column may feed.
const (
	FieldStatus     = "status"
	FieldStatusDate = "statusDate"
	FieldTracking1  = "tracking1"
	FieldTracking2  = "tracking2"
	FieldTracking3  = "tracking3"
	FieldNotes      = "notes"
)

// StatusLabels translate a source system's compliant / non-compliant cell
// values into the canonical status vocabulary for one measure.
type StatusLabels struct {
	Compliant    string `mapstructure:"compliantLabel"`
	NonCompliant string `mapstructure:"nonCompliantLabel"`
}

// SystemProfile describes one external clinic export format. Loaded once,
// read-only for the process lifetime.
type SystemProfile struct {
	ID             string
	DisplayName    string
	Version        string
	PatientColumns map[string]string
	MeasureColumns map[string]MeasureMapping
	StatusLabels   map[string]StatusLabels
	SkipHeaders    map[string]struct{}
}

// PatientField resolves a source header against the patient column map,
// case-insensitively.
func (p *SystemProfile) PatientField(header string) (string, bool) {
	field, ok := p.PatientColumns[strings.ToLower(strings.TrimSpace(header))]
	return field, ok
}

// MeasureColumn resolves a source header against the measure column map,
// case-insensitively.
func (p *SystemProfile) MeasureColumn(header string) (MeasureMapping, bool) {
	mapping, ok := p.MeasureColumns[strings.ToLower(strings.TrimSpace(header))]
	return mapping, ok
}

// Skipped reports whether the header is deliberately ignored by this profile.
func (p *SystemProfile) Skipped(header string) bool {
	_, ok := p.SkipHeaders[strings.ToLower(strings.TrimSpace(header))]
	return ok
}

// Labels returns the status label pair configured for a measure, if any.
// Lookup is case-insensitive.
func (p *SystemProfile) Labels(qualityMeasure string) (StatusLabels, bool) {
	labels, ok := p.StatusLabels[strings.ToLower(strings.TrimSpace(qualityMeasure))]
	return labels, ok
}

// SystemInfo is one row of the registry listing.
type SystemInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IsDefault   bool   `json:"isDefault"`
}

// Registry holds every loaded system profile plus the configured default.
type Registry struct {
	profiles  map[string]*SystemProfile
	order     []string
	defaultID string
}

type registryDocument struct {
	Systems map[string]struct {
		DisplayName string `mapstructure:"displayName"`
		ConfigRef   string `mapstructure:"configRef"`
	} `mapstructure:"systems"`
	DefaultID string `mapstructure:"defaultId"`
}

type profileDocument struct {
	DisplayName      string                    `mapstructure:"displayName"`
	Version          string                    `mapstructure:"version"`
	PatientColumnMap map[string]string         `mapstructure:"patientColumnMap"`
	MeasureColumnMap map[string]MeasureMapping `mapstructure:"measureColumnMap"`
	StatusMap        map[string]StatusLabels   `mapstructure:"statusMap"`
	SkipHeaders      []string                  `mapstructure:"skipHeaders"`
}

// Load reads the registry document and every referenced profile from dir.
func Load(dir string) (*Registry, error) {
	registryPath := filepath.Join(dir, "registry.yaml")
	if _, err := os.Stat(registryPath); err != nil {
		return nil, domain.WrapError(domain.CodeConfigMissing, err, "system registry document not found")
	}

	v := viper.New()
	v.SetConfigFile(registryPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, domain.WrapError(domain.CodeConfigMalformed, err, "system registry document is not parsable")
	}

	var doc registryDocument
	if err := v.Unmarshal(&doc); err != nil {
		return nil, domain.WrapError(domain.CodeConfigMalformed, err, "system registry document has unexpected shape")
	}
	if len(doc.Systems) == 0 {
		return nil, domain.NewError(domain.CodeConfigMalformed, "system registry lists no systems")
	}
	if _, ok := doc.Systems[doc.DefaultID]; !ok {
		return nil, domain.NewError(domain.CodeConfigMalformed, "defaultId %q does not name a registered system", doc.DefaultID)
	}

	reg := &Registry{
		profiles:  make(map[string]*SystemProfile, len(doc.Systems)),
		defaultID: doc.DefaultID,
	}

	for id, entry := range doc.Systems {
		profile, err := loadProfile(dir, id, entry.ConfigRef)
		if err != nil {
			return nil, err
		}
		if profile.DisplayName == "" {
			profile.DisplayName = entry.DisplayName
		}
		reg.profiles[id] = profile
		reg.order = append(reg.order, id)
	}
	// Deterministic listing order regardless of map iteration.
	sort.Strings(reg.order)

	return reg, nil
}

func loadProfile(dir, id, configRef string) (*SystemProfile, error) {
	if strings.TrimSpace(configRef) == "" {
		return nil, domain.NewError(domain.CodeConfigMalformed, "system %q has no configRef", id)
	}

	path := filepath.Join(dir, configRef)
	if _, err := os.Stat(path); err != nil {
		return nil, domain.WrapError(domain.CodeConfigMissing, err, "profile document for system %q not found", id)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, domain.WrapError(domain.CodeConfigMalformed, err, "profile document for system %q is not parsable", id)
	}

	var doc profileDocument
	if err := v.Unmarshal(&doc); err != nil {
		return nil, domain.WrapError(domain.CodeConfigMalformed, err, "profile document for system %q has unexpected shape", id)
	}

	profile := &SystemProfile{
		ID:             id,
		DisplayName:    doc.DisplayName,
		Version:        doc.Version,
		PatientColumns: make(map[string]string, len(doc.PatientColumnMap)),
		MeasureColumns: make(map[string]MeasureMapping, len(doc.MeasureColumnMap)),
		StatusLabels:   make(map[string]StatusLabels, len(doc.StatusMap)),
		SkipHeaders:    make(map[string]struct{}, len(doc.SkipHeaders)),
	}

	for header, field := range doc.PatientColumnMap {
		profile.PatientColumns[strings.ToLower(strings.TrimSpace(header))] = field
	}
	// Fold status map keys like the column maps: viper lowercases nested map
	// keys on unmarshal, so lookups must not depend on the document's casing.
	for measure, labels := range doc.StatusMap {
		profile.StatusLabels[strings.ToLower(strings.TrimSpace(measure))] = labels
	}
	for header, mapping := range doc.MeasureColumnMap {
		if mapping.Field == "" {
			mapping.Field = FieldStatus
		}
		switch mapping.Field {
		case FieldStatus, FieldStatusDate, FieldTracking1, FieldTracking2, FieldTracking3, FieldNotes:
		default:
			return nil, domain.NewError(domain.CodeConfigMalformed,
				"system %q maps column %q to unknown field %q", id, header, mapping.Field)
		}
		profile.MeasureColumns[strings.ToLower(strings.TrimSpace(header))] = mapping
	}
	for _, header := range doc.SkipHeaders {
		profile.SkipHeaders[strings.ToLower(strings.TrimSpace(header))] = struct{}{}
	}

	return profile, nil
}

// Get returns the profile for id. Lookup is case-sensitive.
func (r *Registry) Get(id string) (*SystemProfile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, domain.NewError(domain.CodeSystemNotFound, "unknown source system %q", id)
	}
	return profile, nil
}

// DefaultID returns the id of the configured default system.
func (r *Registry) DefaultID() string {
	return r.defaultID
}

// List enumerates all systems with exactly one marked as default.
func (r *Registry) List() []SystemInfo {
	infos := make([]SystemInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, SystemInfo{
			ID:          id,
			DisplayName: r.profiles[id].DisplayName,
			IsDefault:   id == r.defaultID,
		})
	}
	return infos
}
