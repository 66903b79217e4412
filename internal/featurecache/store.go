// Package featurecache keeps scraped product features on disk as a single
// JSON document and resolves CRM models to cached entries.
package featurecache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"crmlookup/internal/components/assert"
	"crmlookup/internal/components/chrono"
	"crmlookup/internal/components/telemetry"
	"crmlookup/internal/modelmatch"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("crmlookup/featurecache")

const (
	report_store_load   = "store.load"
	report_store_save   = "store.save"
	report_store_clear  = "store.clear"
	report_store_info   = "store.info"
	report_store_lookup = "store.lookup"
	report_store_size   = "store.size"
)

// Store owns the in-memory cache document and is the only writer of the
// cache file. Lookups and puts are safe for concurrent use, saves are
// serialized.
type Store struct {
	path  string
	tel   telemetry.API
	clock chrono.API

	mutex     sync.RWMutex
	products  map[string]FeatureSet
	modelToID map[string]int
	// touched is set once the store was loaded or written to, after that a
	// lookup never loads the file implicitly.
	touched bool

	saveMutex sync.Mutex
}

func New(path string, tel telemetry.API, clock chrono.API) *Store {
	assert.NotEmptyStr(path)
	assert.NotNil(tel)
	assert.NotNil(clock)

	return &Store{
		path:      path,
		tel:       telemetry.NewScopedAPI("featurecache", tel),
		clock:     clock,
		products:  map[string]FeatureSet{},
		modelToID: map[string]int{},
	}
}

// Path returns the location of the cache file.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory state with the contents of the cache file.
// A missing, unreadable or malformed file counts as no cache: false is
// returned and the store is left empty.
func (s *Store) Load(ctx context.Context) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) bool {
	_, span := tracer.Start(ctx, "store:load")
	defer span.End()

	s.touched = true
	s.products = map[string]FeatureSet{}
	s.modelToID = map[string]int{}

	doc, err := readDocument(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.tel.ReportDebug("cache file does not exist", s.path)
		return false
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cache file")
		s.tel.ReportWarning(report_store_load, err, s.path)
		return false
	}

	for model, features := range doc.Products {
		key := modelmatch.Key(model)
		if key == "" {
			continue
		}
		s.products[key] = features.Clone()
	}
	for model, id := range doc.ModelToID {
		key := modelmatch.Key(model)
		if key == "" || id == 0 {
			continue
		}
		s.modelToID[key] = id
	}

	span.SetAttributes(attribute.Int("custom.products", len(s.products)))
	s.tel.ReportCount(report_store_size, int64(len(s.products)))
	return true
}

func readDocument(path string) (Document, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	err = json.Unmarshal(contents, &doc)
	if err != nil {
		return Document{}, fmt.Errorf("unmarshal cache document: %w", err)
	}
	return doc, nil
}

func (s *Store) ensureLoaded(ctx context.Context) {
	s.mutex.RLock()
	touched := s.touched
	s.mutex.RUnlock()
	if touched {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.touched {
		s.loadLocked(ctx)
	}
}

// Lookup resolves a model to a cached feature set. In order it tries the
// upper-cased model as a key, then its normalized form, then the best fuzzy
// match among all keys if that scores at least modelmatch.CacheThreshold.
func (s *Store) Lookup(ctx context.Context, model string) (FeatureSet, MatchKind) {
	ctx, span := tracer.Start(ctx, "store:lookup")
	defer span.End()

	if model == "" {
		return FeatureSet{}, MatchMiss
	}
	s.ensureLoaded(ctx)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	key := modelmatch.Key(model)
	if features, ok := s.products[key]; ok {
		s.tel.ReportDebug("exact match", model)
		return features.Clone(), MatchExact
	}

	normalized := modelmatch.Normalize(model)
	if features, ok := s.products[normalized]; ok {
		s.tel.ReportDebug("normalized match", model, normalized)
		return features.Clone(), MatchNormalized
	}

	keys := make([]string, 0, len(s.products))
	for k := range s.products {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	idx, score := modelmatch.Best(model, keys)
	span.SetAttributes(attribute.Int("custom.best_score", score))
	if idx >= 0 && score >= modelmatch.CacheThreshold {
		s.tel.ReportDebug("fuzzy match", model, keys[idx], score)
		return s.products[keys[idx]].Clone(), MatchFuzzy
	}

	s.tel.ReportDebug(report_store_lookup+": miss", model)
	return FeatureSet{}, MatchMiss
}

// Put stores a feature set under its upper-cased model, replacing any
// previous entry. It returns false and stores nothing when the model is empty.
func (s *Store) Put(features FeatureSet) bool {
	key := modelmatch.Key(features.ProductModel)
	if key == "" {
		return false
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.touched = true
	s.products[key] = features.Clone()
	if features.ProductID != 0 {
		s.modelToID[key] = features.ProductID
	}
	return true
}

// Len returns the number of cached products.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.products)
}

// HasCache returns true if the cache file exists and the store holds entries.
func (s *Store) HasCache() bool {
	_, err := os.Stat(s.path)
	return err == nil && s.Len() > 0
}

// Snapshot builds the document that Save would write at this moment.
func (s *Store) Snapshot() Document {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	products := make(map[string]FeatureSet, len(s.products))
	ids := map[int]struct{}{}
	for key, features := range s.products {
		products[key] = features.Clone()
		if features.ProductID != 0 {
			ids[features.ProductID] = struct{}{}
		}
	}
	validIDs := make([]int, 0, len(ids))
	for id := range ids {
		validIDs = append(validIDs, id)
	}
	slices.Sort(validIDs)

	modelToID := make(map[string]int, len(s.modelToID))
	for key, id := range s.modelToID {
		modelToID[key] = id
	}

	return Document{
		CacheVersion:  CacheVersion,
		LastUpdate:    chrono.Timestamp(s.clock),
		TotalProducts: len(products),
		ValidIDs:      validIDs,
		Products:      products,
		ModelToID:     modelToID,
	}
}

// Save writes the whole document to a temporary file next to the cache file
// and renames it over the cache file.
func (s *Store) Save(ctx context.Context) error {
	_, span := tracer.Start(ctx, "store:save")
	defer span.End()

	s.saveMutex.Lock()
	defer s.saveMutex.Unlock()

	doc := s.Snapshot()
	err := writeDocument(s.path, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save cache document")
		s.tel.ReportBroken(report_store_save, err, s.path)
		return err
	}

	span.SetAttributes(attribute.Int("custom.products", doc.TotalProducts))
	s.tel.ReportCount(report_store_size, int64(doc.TotalProducts))
	return nil
}

func writeDocument(path string, doc Document) error {
	buf := bytes.NewBuffer(nil)
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("marshal cache document: %w", err)
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, err = tmp.Write(buf.Bytes())
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close temp file: %w", closeErr)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Clear drops all in-memory state and deletes the cache file if present.
func (s *Store) Clear(ctx context.Context) error {
	_, span := tracer.Start(ctx, "store:clear")
	defer span.End()

	s.saveMutex.Lock()
	defer s.saveMutex.Unlock()

	s.mutex.Lock()
	s.products = map[string]FeatureSet{}
	s.modelToID = map[string]int{}
	s.touched = false
	s.mutex.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		span.RecordError(err)
		s.tel.ReportBroken(report_store_clear, err, s.path)
		return err
	}
	s.tel.ReportDebug("cache cleared", s.path)
	return nil
}

// Info reads the header of the cache file on disk. An unreadable file is
// reported as not existing.
func (s *Store) Info() Info {
	doc, err := readDocument(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Info{}
	}
	if err != nil {
		s.tel.ReportWarning(report_store_info, err, s.path)
		return Info{}
	}
	return Info{
		Exists:     true,
		Total:      doc.TotalProducts,
		LastUpdate: doc.LastUpdate,
	}
}
