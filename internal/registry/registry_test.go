package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/careops/measuresync/internal/domain"
)

const registryDoc = `defaultId: athena
systems:
  athena:
    displayName: "Athena Health"
    configRef: athena.yaml
  allscripts:
    displayName: "Allscripts"
    configRef: allscripts.yaml
`

const athenaDoc = `displayName: "Athena Health"
version: "2026.1"
patientColumnMap:
  "Patient Name": fullName
  "DOB": dateOfBirth
measureColumnMap:
  "Mammogram":
    requestType: "Screening"
    qualityMeasure: "Breast Cancer Screening"
  "Mammogram Date":
    requestType: "Screening"
    qualityMeasure: "Breast Cancer Screening"
    field: statusDate
statusMap:
  "Breast Cancer Screening":
    compliantLabel: "Mammogram completed"
    nonCompliantLabel: "Screening discussed"
skipHeaders:
  - "Chart Number"
`

const allscriptsDoc = `displayName: "Allscripts"
patientColumnMap:
  "First Name": firstName
  "Last Name": lastName
  "Date of Birth": dateOfBirth
`

func writeConfigDir(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func defaultDocs() map[string]string {
	return map[string]string{
		"registry.yaml":   registryDoc,
		"athena.yaml":     athenaDoc,
		"allscripts.yaml": allscriptsDoc,
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := writeConfigDir(t, defaultDocs())

	reg, err := Load(dir)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if reg.DefaultID() != "athena" {
		t.Errorf("default = %s, want athena", reg.DefaultID())
	}

	infos := reg.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 systems, got %d", len(infos))
	}
	// Listing is sorted by id.
	if infos[0].ID != "allscripts" || infos[1].ID != "athena" {
		t.Errorf("unexpected order: %v", infos)
	}
	if !infos[1].IsDefault || infos[0].IsDefault {
		t.Errorf("default flag misplaced: %v", infos)
	}
}

func TestProfileLookupsAreCaseInsensitive(t *testing.T) {
	dir := writeConfigDir(t, defaultDocs())
	reg, err := Load(dir)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	profile, err := reg.Get("athena")
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}

	if field, ok := profile.PatientField("  patient name "); !ok || field != "fullName" {
		t.Errorf("PatientField = %q, %v", field, ok)
	}

	mapping, ok := profile.MeasureColumn("MAMMOGRAM DATE")
	if !ok {
		t.Fatal("measure column lookup failed")
	}
	if mapping.QualityMeasure != "Breast Cancer Screening" || mapping.Field != FieldStatusDate {
		t.Errorf("unexpected mapping: %+v", mapping)
	}

	// Unspecified field defaults to status.
	mapping, _ = profile.MeasureColumn("Mammogram")
	if mapping.Field != FieldStatus {
		t.Errorf("default field = %q, want %q", mapping.Field, FieldStatus)
	}

	if !profile.Skipped("chart number") {
		t.Error("skip headers should match case-insensitively")
	}

	// The status map must resolve for the original-case measure name carried
	// in the column mapping, regardless of how the yaml loader cased the keys.
	mapping, _ = profile.MeasureColumn("Mammogram")
	labels, ok := profile.Labels(mapping.QualityMeasure)
	if !ok || labels.Compliant != "Mammogram completed" || labels.NonCompliant != "Screening discussed" {
		t.Errorf("labels = %+v, %v", labels, ok)
	}
	if _, ok := profile.Labels("BREAST CANCER SCREENING"); !ok {
		t.Error("status labels should match case-insensitively")
	}
}

func TestGetUnknownSystem(t *testing.T) {
	dir := writeConfigDir(t, defaultDocs())
	reg, err := Load(dir)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	_, err = reg.Get("epic")
	if err == nil {
		t.Fatal("expected an error")
	}
	if domain.CodeOf(err) != domain.CodeSystemNotFound {
		t.Errorf("code = %s, want SYSTEM_NOT_FOUND", domain.CodeOf(err))
	}
}

func TestLoadFailures(t *testing.T) {
	t.Run("missing registry document", func(t *testing.T) {
		_, err := Load(t.TempDir())
		if domain.CodeOf(err) != domain.CodeConfigMissing {
			t.Errorf("code = %s, want CONFIG_MISSING", domain.CodeOf(err))
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		dir := writeConfigDir(t, map[string]string{"registry.yaml": "systems: [not: valid"})
		_, err := Load(dir)
		if domain.CodeOf(err) != domain.CodeConfigMalformed {
			t.Errorf("code = %s, want CONFIG_MALFORMED", domain.CodeOf(err))
		}
	})

	t.Run("default names unknown system", func(t *testing.T) {
		docs := defaultDocs()
		docs["registry.yaml"] = "defaultId: epic\nsystems:\n  athena:\n    configRef: athena.yaml\n"
		dir := writeConfigDir(t, docs)
		_, err := Load(dir)
		if domain.CodeOf(err) != domain.CodeConfigMalformed {
			t.Errorf("code = %s, want CONFIG_MALFORMED", domain.CodeOf(err))
		}
	})

	t.Run("missing profile document", func(t *testing.T) {
		docs := defaultDocs()
		delete(docs, "athena.yaml")
		dir := writeConfigDir(t, docs)
		_, err := Load(dir)
		if domain.CodeOf(err) != domain.CodeConfigMissing {
			t.Errorf("code = %s, want CONFIG_MISSING", domain.CodeOf(err))
		}
	})

	t.Run("unknown field mapping", func(t *testing.T) {
		docs := defaultDocs()
		docs["athena.yaml"] = "measureColumnMap:\n  \"Mammogram\":\n    requestType: Screening\n    qualityMeasure: BCS\n    field: bogus\n"
		dir := writeConfigDir(t, docs)
		_, err := Load(dir)
		if domain.CodeOf(err) != domain.CodeConfigMalformed {
			t.Errorf("code = %s, want CONFIG_MALFORMED", domain.CodeOf(err))
		}
	})
}
