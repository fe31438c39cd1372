package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cenkalti/backoff/v4"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/models"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAllSourcesFailed is returned when every configured source was exhausted
// without importing a single feature.
var ErrAllSourcesFailed = errors.New("no source yielded any importable features")

const fetchMaxRetries = 2

// codePlaceholder marks an absent code in several upstream datasets
// (disputed territories carry ISO_A3 = "-99").
const codePlaceholder = "-99"

type document struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]interface{} `json:"properties"`
	Geometry   json.RawMessage        `json:"geometry"`
}

// Report summarizes one import run.
type Report struct {
	RunID    string
	Source   string // name of the source that succeeded, "" if none did
	Imported int
	Skipped  int
}

// Importer normalizes heterogeneous GeoJSON documents into region records and
// upserts them by code.
type Importer struct {
	svc    *services.RegionService
	client *http.Client
	logr   *zap.Logger
}

func New(svc *services.RegionService, fetchTimeout time.Duration, logr *zap.Logger) *Importer {
	return &Importer{
		svc:    svc,
		client: &http.Client{Timeout: fetchTimeout},
		logr:   logr,
	}
}

// Run executes an import job. Sources are tried in order; the run succeeds as
// soon as one source yields at least one imported feature. Per-feature
// failures never abort a batch, and a failed source only escalates to the
// next one.
func (im *Importer) Run(ctx context.Context, job Job) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logr := im.logr.With(zap.String("run_id", report.RunID))

	parentID, err := im.resolveParent(ctx, job, logr)
	if err != nil {
		return report, err
	}

	if job.ReplaceType != "" {
		deleted, err := im.svc.DeleteByType(ctx, job.ReplaceType)
		if err != nil {
			return report, fmt.Errorf("failed to clear existing %s regions: %w", job.ReplaceType, err)
		}
		logr.Info("cleared existing regions before import",
			zap.String("region_type", job.ReplaceType), zap.Int64("deleted", deleted))
	}

	for _, source := range job.Sources {
		logr.Info("trying import source", zap.String("source", source.Name))

		doc, err := im.load(ctx, source)
		if err != nil {
			logr.Warn("source fetch failed, trying next",
				zap.String("source", source.Name), zap.Error(err))
			continue
		}

		imported, skipped := im.importDocument(ctx, doc, source.Rules, parentID, logr)
		report.Skipped += skipped

		if imported > 0 {
			report.Source = source.Name
			report.Imported = imported
			logr.Info("import succeeded",
				zap.String("source", source.Name),
				zap.Int("imported", imported),
				zap.Int("skipped", skipped))
			return report, nil
		}

		logr.Warn("source yielded no features, trying next", zap.String("source", source.Name))
	}

	return report, ErrAllSourcesFailed
}

// importDocument upserts every resolvable feature of one document. Returns
// the imported and skipped counts; individual record failures are logged and
// do not stop the batch.
func (im *Importer) importDocument(ctx context.Context, doc *document, rules Rules, parentID *int64, logr *zap.Logger) (int, int) {
	imported, skipped := 0, 0

	for _, feat := range doc.Features {
		if rules.CountryFilter != nil && !rules.CountryFilter.matches(feat.Properties) {
			continue
		}

		name := resolveName(feat.Properties, rules.NameKeys)
		if name == "" {
			skipped++
			continue
		}

		if geometryEmpty(feat.Geometry) {
			logr.Debug("skipping feature without usable geometry", zap.String("name", name))
			skipped++
			continue
		}

		code := resolveCode(feat.Properties, rules, name)
		geojson := string(feat.Geometry)

		in := models.RegionInput{
			Name:        name,
			ParentID:    parentID,
			RegionType:  rules.RegionType,
			GeoJSONData: &geojson,
		}
		if rules.CustomData != nil {
			if blob, err := json.Marshal(rules.CustomData(feat.Properties)); err == nil {
				custom := string(blob)
				in.CustomData = &custom
			}
		}

		if err := im.svc.UpsertByCode(ctx, code, in); err != nil {
			logr.Warn("failed to upsert region",
				zap.String("name", name), zap.String("code", code), zap.Error(err))
			skipped++
			continue
		}

		imported++
	}

	return imported, skipped
}

// resolveParent looks up (and optionally creates) the job's parent region.
// A missing parent is not fatal: the regions are imported unparented.
func (im *Importer) resolveParent(ctx context.Context, job Job, logr *zap.Logger) (*int64, error) {
	if job.ParentCode == "" {
		return nil, nil
	}

	parent, err := im.svc.GetByCode(ctx, job.ParentCode)
	if err == nil {
		return &parent.ID, nil
	}
	if !errors.Is(err, services.ErrRegionNotFound) {
		return nil, err
	}

	if job.EnsureParentName == "" {
		logr.Warn("parent region not found, importing without parent",
			zap.String("parent_code", job.ParentCode))
		return nil, nil
	}

	code := job.ParentCode
	id, err := im.svc.Create(ctx, models.RegionInput{
		Name:       job.EnsureParentName,
		Code:       &code,
		RegionType: "country",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create parent region %s: %w", code, err)
	}
	logr.Info("created parent region",
		zap.String("parent_code", code), zap.Int64("id", id))
	return &id, nil
}

// load fetches a source document, retrying transient fetch failures with
// exponential backoff. Local file sources are read directly.
func (im *Importer) load(ctx context.Context, source Source) (*document, error) {
	if source.File != "" {
		raw, err := os.ReadFile(source.File)
		if err != nil {
			return nil, err
		}
		return parseDocument(raw)
	}

	var doc *document
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := im.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, source.URL)
		}

		var parseErr error
		doc, parseErr = decodeDocument(resp)
		return parseErr
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchMaxRetries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeDocument(resp *http.Response) (*document, error) {
	doc := new(document)
	if err := json.NewDecoder(resp.Body).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode geojson document: %w", err)
	}
	return doc, nil
}

func parseDocument(raw []byte) (*document, error) {
	doc := new(document)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("failed to parse geojson document: %w", err)
	}
	return doc, nil
}

func (f *CountryFilter) matches(props map[string]interface{}) bool {
	for _, key := range f.Keys {
		value := stringProp(props, key)
		if value == "" {
			continue
		}
		for _, accept := range f.Accept {
			if value == accept || strings.Contains(value, accept) {
				return true
			}
		}
	}
	return false
}

// resolveName probes the ordered key list and returns the first non-empty
// string. Features without a resolvable name are skipped by the caller: a
// nameless placeholder row serves no consumer.
func resolveName(props map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v := stringProp(props, key); v != "" {
			return v
		}
	}
	return ""
}

// resolveCode probes the primary then fallback key lists, treating upstream
// placeholders as absent, then consults the static table, and finally
// synthesizes a code from the name. Synthesis is deterministic so re-running
// an import maps each feature to the same code.
func resolveCode(props map[string]interface{}, rules Rules, name string) string {
	for _, key := range rules.CodeKeys {
		if v := stringProp(props, key); v != "" && v != codePlaceholder {
			return v
		}
	}
	for _, key := range rules.FallbackCodeKeys {
		if v := stringProp(props, key); v != "" && v != codePlaceholder {
			return v
		}
	}
	if code, ok := rules.StaticCodes[name]; ok {
		return code
	}
	return synthesizeCode(name, rules.CodePrefix)
}

// synthesizeCode derives a code from the region name: uppercase leading
// alphanumerics, two characters under a parent prefix (US-CA style), three
// when bare.
func synthesizeCode(name, prefix string) string {
	length := 3
	if prefix != "" {
		length = 2
	}

	code := make([]rune, 0, length)
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			code = append(code, unicode.ToUpper(r))
			if len(code) >= length {
				break
			}
		}
	}

	if prefix != "" {
		return prefix + "-" + string(code)
	}
	return string(code)
}

// stringProp reads a property as a string, rendering numeric values (some
// datasets carry numeric ids and placeholder codes) the way they appear in
// the source.
func stringProp(props map[string]interface{}, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// geometryEmpty reports whether a feature's geometry is absent or carries no
// coordinate data. Polygon and MultiPolygon emptiness is judged by the first
// ring.
func geometryEmpty(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}

	var geom struct {
		Type        string            `json:"type"`
		Coordinates []json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &geom); err != nil {
		return true
	}
	if len(geom.Coordinates) == 0 {
		return true
	}

	switch geom.Type {
	case "Polygon":
		return ringEmpty(geom.Coordinates[0])
	case "MultiPolygon":
		var rings []json.RawMessage
		if err := json.Unmarshal(geom.Coordinates[0], &rings); err != nil || len(rings) == 0 {
			return true
		}
		return ringEmpty(rings[0])
	default:
		return false
	}
}

func ringEmpty(raw json.RawMessage) bool {
	var ring []json.RawMessage
	if err := json.Unmarshal(raw, &ring); err != nil {
		return true
	}
	return len(ring) == 0
}
