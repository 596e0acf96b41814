package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// File names of a sanitized export directory.
const (
	IncidentsFile = "incidents.json"
	EventsFile    = "timeline_events.json"
	WarningsFile  = "warnings.json"
	ManifestFile  = "sanitized_manifest.json"
)

// supportedManifestVersion is the only manifest version accepted.
const supportedManifestVersion = 1

const nullValue = "NULL"

// IncidentMetrics are precomputed durations in seconds.
type IncidentMetrics struct {
	MTTDSeconds             *int64 `json:"mttd_seconds"`
	ITAwarenessLagSeconds   *int64 `json:"it_awareness_lag_seconds"`
	MTTASeconds             *int64 `json:"mtta_seconds"`
	TimeToMitigationSeconds *int64 `json:"time_to_mitigation_seconds"`
	MTTRSeconds             *int64 `json:"mttr_seconds"`
}

// SanitizedIncident is one row of incidents.json.
type SanitizedIncident struct {
	IncidentKey      string          `json:"incident_key"`
	Severity         *string         `json:"severity"`
	DetectionSource  *string         `json:"detection_source"`
	Vendor           *string         `json:"vendor"`
	Service          *string         `json:"service"`
	ImpactPct        *int64          `json:"impact_pct"`
	ServiceHealthPct *int64          `json:"service_health_pct"`
	StartTS          *string         `json:"start_ts"`
	FirstObservedTS  *string         `json:"first_observed_ts"`
	ITAwarenessTS    *string         `json:"it_awareness_ts"`
	AckTS            *string         `json:"ack_ts"`
	MitigateTS       *string         `json:"mitigate_ts"`
	ResolveTS        *string         `json:"resolve_ts"`
	Metrics          IncidentMetrics `json:"metrics"`
	WarningCount     int64           `json:"warning_count"`
}

// SanitizedEvent is one row of timeline_events.json. Event text is never
// exported.
type SanitizedEvent struct {
	IncidentKey  string  `json:"incident_key"`
	Source       string  `json:"source"`
	TS           *string `json:"ts"`
	Kind         *string `json:"kind"`
	TextRedacted bool    `json:"text_redacted"`
}

// SanitizedWarning is one row of warnings.json.
type SanitizedWarning struct {
	IncidentKey string `json:"incident_key"`
	Code        string `json:"code"`
}

// ManifestFileEntry describes one file listed in the manifest.
type ManifestFileEntry struct {
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	SHA256   string `json:"sha256"`
}

// Manifest is the optional sanitized_manifest.json.
type Manifest struct {
	ManifestVersion int                 `json:"manifest_version"`
	AppVersion      string              `json:"app_version"`
	ExportTime      string              `json:"export_time"`
	IncidentCount   int64               `json:"incident_count"`
	Files           []ManifestFileEntry `json:"files"`
}

// SanitizedExport is a decoded export directory.
type SanitizedExport struct {
	Incidents []SanitizedIncident
	Events    []SanitizedEvent
	Warnings  []SanitizedWarning
	Manifest  *Manifest
}

// SanitizedExport formats one chunk per incident, ordered by incident key.
func (c *Chunker) SanitizedExport(ctx context.Context, dir string) ([]domain.ChunkDraft, error) {
	export, err := LoadSanitizedExport(ctx, dir)
	if err != nil {
		return nil, err
	}

	incidents := make([]SanitizedIncident, len(export.Incidents))
	copy(incidents, export.Incidents)
	sort.SliceStable(incidents, func(i, j int) bool {
		return incidents[i].IncidentKey < incidents[j].IncidentKey
	})

	drafts := make([]domain.ChunkDraft, 0, len(incidents))
	for _, inc := range incidents {
		drafts = append(drafts, domain.ChunkDraft{
			Text: FormatIncident(inc, export.Events, export.Warnings),
			Meta: domain.ChunkMeta{
				Kind:         domain.ChunkKindSanitizedIncidentBundle,
				IncidentKeys: []string{inc.IncidentKey},
				TimeRange: &domain.TimeRange{
					StartTS: inc.StartTS,
					EndTS:   inc.ResolveTS,
				},
			},
		})
	}
	return drafts, nil
}

// LoadSanitizedExport reads, schema-checks and decodes an export directory.
// When a manifest is present, every listed file must match its recorded
// size and hash.
func LoadSanitizedExport(ctx context.Context, dir string) (*SanitizedExport, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, sourceError(dir, err)
	}
	if !info.IsDir() {
		return nil, sourceError(dir, errors.New("not a directory"))
	}

	export := &SanitizedExport{}
	if err := readExportFile(dir, IncidentsFile, schemaIncidents, &export.Incidents); err != nil {
		return nil, err
	}
	if err := readExportFile(dir, EventsFile, schemaEvents, &export.Events); err != nil {
		return nil, err
	}
	if err := readExportFile(dir, WarningsFile, schemaWarnings, &export.Warnings); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(dir, ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		var manifest Manifest
		if err := readExportFile(dir, ManifestFile, schemaManifest, &manifest); err != nil {
			return nil, err
		}
		if err := verifyManifest(dir, &manifest, len(export.Incidents)); err != nil {
			return nil, err
		}
		export.Manifest = &manifest
	} else if !os.IsNotExist(err) {
		return nil, sourceError(manifestPath, err)
	}

	return export, nil
}

func readExportFile(dir, name, schema string, out any) error {
	path := filepath.Join(dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return sourceError(path, err)
	}
	if err := validateDocument(schema, raw); err != nil {
		return sourceError(path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return sourceError(path, err)
	}
	return nil
}

func verifyManifest(dir string, m *Manifest, incidentCount int) error {
	if m.ManifestVersion != supportedManifestVersion {
		return domain.ErrSourceInvalid.WithDetailsf("manifest_version=%d; expected=%d",
			m.ManifestVersion, supportedManifestVersion)
	}

	listed := make(map[string]bool, len(m.Files))
	for _, f := range m.Files {
		listed[f.Filename] = true
	}
	for _, required := range []string{IncidentsFile, EventsFile, WarningsFile} {
		if !listed[required] {
			return domain.ErrSourceInvalid.WithDetailsf("manifest does not list %s", required)
		}
	}

	for _, f := range m.Files {
		if f.Filename != filepath.Base(f.Filename) {
			return domain.ErrSourceInvalid.WithDetailsf("manifest file name %q must not contain a path", f.Filename)
		}
		path := filepath.Join(dir, f.Filename)
		data, err := os.ReadFile(path)
		if err != nil {
			return sourceError(path, err)
		}
		sum := sha256.Sum256(data)
		if actual := hex.EncodeToString(sum[:]); actual != f.SHA256 {
			return domain.ErrSourceInvalid.WithDetailsf("file=%s; expected_sha256=%s; actual_sha256=%s",
				f.Filename, f.SHA256, actual)
		}
		if int64(len(data)) != f.Bytes {
			return domain.ErrSourceInvalid.WithDetailsf("file=%s; expected_bytes=%d; actual_bytes=%d",
				f.Filename, f.Bytes, len(data))
		}
	}

	if m.IncidentCount != int64(incidentCount) {
		return domain.ErrSourceInvalid.WithDetailsf("incident_count=%d; actual=%d", m.IncidentCount, incidentCount)
	}
	return nil
}

// FormatIncident renders one incident with its warnings and timeline events.
func FormatIncident(inc SanitizedIncident, events []SanitizedEvent, warnings []SanitizedWarning) string {
	lines := []string{"Incident Key: " + inc.IncidentKey}
	optional := []struct {
		label string
		value *string
	}{
		{"Severity", inc.Severity},
		{"Detection Source", inc.DetectionSource},
		{"Vendor", inc.Vendor},
		{"Service", inc.Service},
	}
	for _, o := range optional {
		if o.value != nil {
			lines = append(lines, fmt.Sprintf("%s: %s", o.label, *o.value))
		}
	}
	if inc.ImpactPct != nil {
		lines = append(lines, fmt.Sprintf("Impact %%: %d", *inc.ImpactPct))
	}
	if inc.ServiceHealthPct != nil {
		lines = append(lines, fmt.Sprintf("Service Health %%: %d", *inc.ServiceHealthPct))
	}

	lines = append(lines,
		"Timestamps (RFC3339, nullable):",
		"  start_ts: "+orNull(inc.StartTS),
		"  first_observed_ts: "+orNull(inc.FirstObservedTS),
		"  it_awareness_ts: "+orNull(inc.ITAwarenessTS),
		"  ack_ts: "+orNull(inc.AckTS),
		"  mitigate_ts: "+orNull(inc.MitigateTS),
		"  resolve_ts: "+orNull(inc.ResolveTS),
		"Deterministic metrics (seconds, nullable):",
		"  mttd_seconds: "+intOrNull(inc.Metrics.MTTDSeconds),
		"  it_awareness_lag_seconds: "+intOrNull(inc.Metrics.ITAwarenessLagSeconds),
		"  mtta_seconds: "+intOrNull(inc.Metrics.MTTASeconds),
		"  time_to_mitigation_seconds: "+intOrNull(inc.Metrics.TimeToMitigationSeconds),
		"  mttr_seconds: "+intOrNull(inc.Metrics.MTTRSeconds),
		fmt.Sprintf("Warning count: %d", inc.WarningCount),
	)

	var codes []string
	seen := map[string]bool{}
	for _, w := range warnings {
		if w.IncidentKey == inc.IncidentKey && !seen[w.Code] {
			seen[w.Code] = true
			codes = append(codes, w.Code)
		}
	}
	if len(codes) > 0 {
		sort.Strings(codes)
		lines = append(lines, "Warnings (codes):")
		for _, code := range codes {
			lines = append(lines, "  - "+code)
		}
	}

	header := false
	for _, e := range events {
		if e.IncidentKey != inc.IncidentKey {
			continue
		}
		if !header {
			lines = append(lines, "Timeline events (sanitized):")
			header = true
		}
		lines = append(lines, fmt.Sprintf("  - ts=%s; source=%s; kind=%s; text_redacted=%t",
			orNull(e.TS), e.Source, orNull(e.Kind), e.TextRedacted))
	}

	return strings.Join(lines, "\n")
}

func orNull(s *string) string {
	if s == nil {
		return nullValue
	}
	return *s
}

func intOrNull(v *int64) string {
	if v == nil {
		return nullValue
	}
	return strconv.FormatInt(*v, 10)
}
