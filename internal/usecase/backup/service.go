// Package backup exports and restores the documents table as NDJSON: one meta
// record followed by one record per document.
package backup

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // ensure postgres driver available
	_ "github.com/mattn/go-sqlite3" // ensure sqlite driver available

	"github.com/eslsoft/quizstats/internal/infrastructure/database/types"
)

const (
	defaultBatchSize = 512
	formatVersion    = 1

	metaType     = "meta"
	documentType = "document"
)

var (
	errNoCollectionsSelected = errors.New("backup: no collections selected")
	errMissingMeta           = errors.New("backup: missing meta record")
)

type ProgressReporter interface {
	StartCollection(collection string, total int)
	Increment(collection string, delta int)
	FinishCollection(collection string)
}

type noopProgress struct{}

func (noopProgress) StartCollection(string, int) {}
func (noopProgress) Increment(string, int)       {}
func (noopProgress) FinishCollection(string)     {}

type Service struct {
	driver    string
	dsn       string
	batchSize int
	dialect   dialect
}

type Option func(*Service)

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService constructs a backup service bound to the provided database driver and DSN.
func NewService(driver, dsn string, opts ...Option) (*Service, error) {
	driver = strings.TrimSpace(strings.ToLower(driver))
	if driver == "" {
		return nil, errors.New("backup: driver is required")
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("backup: DSN is required")
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("backup: unsupported driver %q", driver)
	}

	svc := &Service{
		driver:    driver,
		dsn:       dsn,
		batchSize: defaultBatchSize,
		dialect:   d,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type ExportOption func(*exportConfig)

type exportConfig struct {
	collections []string
	reporter    ProgressReporter
}

// WithCollections restricts export to the provided collection names.
func WithCollections(collections []string) ExportOption {
	return func(cfg *exportConfig) {
		if len(collections) == 0 {
			return
		}
		cfg.collections = append([]string{}, collections...)
	}
}

// WithProgressReporter registers a reporter that receives progress callbacks during export.
func WithProgressReporter(reporter ProgressReporter) ExportOption {
	return func(cfg *exportConfig) {
		cfg.reporter = reporter
	}
}

type ImportOption func(*importConfig)

type importConfig struct {
	collections []string
}

// WithImportCollections restricts import to the provided collection names.
func WithImportCollections(collections []string) ImportOption {
	return func(cfg *importConfig) {
		if len(collections) == 0 {
			return
		}
		cfg.collections = append([]string{}, collections...)
	}
}

type record struct {
	Type        string         `json:"type"`
	Version     int            `json:"version,omitempty"`
	ExportedAt  *time.Time     `json:"exported_at,omitempty"`
	Collections []string       `json:"collections,omitempty"`
	DocCounts   map[string]int `json:"doc_counts,omitempty"`
	Payload     *document      `json:"payload,omitempty"`
}

type document struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Data       types.Document `json:"data"`
	UpdateTime time.Time      `json:"update_time"`
}

type documentRow struct {
	Collection string         `db:"collection"`
	ID         string         `db:"id"`
	Data       types.Document `db:"data"`
	UpdateTime any            `db:"update_time"`
}

func (s *Service) Export(ctx context.Context, w io.Writer, opts ...ExportOption) error {
	cfg := exportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	reporter := cfg.reporter
	if reporter == nil {
		reporter = noopProgress{}
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	counts, err := s.countDocuments(ctx, db)
	if err != nil {
		return err
	}
	collections, err := selectCollections(counts, cfg.collections)
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(w)
	defer writer.Flush()

	now := time.Now().UTC()
	selected := make(map[string]int, len(collections))
	for _, c := range collections {
		selected[c] = counts[c]
	}
	meta := record{
		Type:        metaType,
		Version:     formatVersion,
		ExportedAt:  &now,
		Collections: collections,
		DocCounts:   selected,
	}
	if err := writeRecord(writer, meta); err != nil {
		return err
	}

	for _, collection := range collections {
		reporter.StartCollection(collection, counts[collection])
		if err := s.exportCollection(ctx, db, collection, reporter, writer); err != nil {
			return err
		}
		reporter.FinishCollection(collection)
	}
	return writer.Flush()
}

func (s *Service) Import(ctx context.Context, r io.Reader, opts ...ImportOption) error {
	cfg := importConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	filter := make(map[string]struct{}, len(cfg.collections))
	for _, c := range cfg.collections {
		if c = strings.TrimSpace(c); c != "" {
			filter[c] = struct{}{}
		}
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	upsert := tx.Rebind(s.dialect.upsert)
	br := bufio.NewReader(r)
	var (
		metaSeen bool
		meta     record
	)

	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read backup: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec record
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}

			switch rec.Type {
			case metaType:
				metaSeen = true
				meta = rec
			case documentType:
				if !metaSeen {
					return errMissingMeta
				}
				if rec.Payload == nil {
					return errors.New("backup: missing payload for document record")
				}
				if len(filter) > 0 {
					if _, ok := filter[rec.Payload.Collection]; !ok {
						break
					}
				}
				if err := s.importDocument(ctx, tx, upsert, rec.Payload); err != nil {
					return err
				}
			default:
				return fmt.Errorf("backup: unknown record type %q", rec.Type)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !metaSeen {
		return errMissingMeta
	}
	if meta.Version != formatVersion {
		return fmt.Errorf("backup: unsupported format version %d", meta.Version)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	commit = true
	return nil
}

func (s *Service) exportCollection(ctx context.Context, db *sqlx.DB, collection string, reporter ProgressReporter, w io.Writer) error {
	batch := s.batchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	query := db.Rebind(`SELECT collection, id, data, update_time FROM documents WHERE collection = ? ORDER BY id LIMIT ? OFFSET ?`)

	for offset := 0; ; offset += batch {
		var rows []documentRow
		if err := db.SelectContext(ctx, &rows, query, collection, batch, offset); err != nil {
			return fmt.Errorf("query %s: %w", collection, err)
		}
		for _, row := range rows {
			updated, err := s.dialect.decodeTime(row.UpdateTime)
			if err != nil {
				return fmt.Errorf("convert %s/%s update_time: %w", row.Collection, row.ID, err)
			}
			doc := &document{Collection: row.Collection, ID: row.ID, Data: row.Data, UpdateTime: updated}
			if err := writeRecord(w, record{Type: documentType, Payload: doc}); err != nil {
				return err
			}
			reporter.Increment(collection, 1)
		}
		if len(rows) < batch {
			break
		}
	}
	return nil
}

func (s *Service) importDocument(ctx context.Context, tx *sqlx.Tx, upsert string, doc *document) error {
	if strings.TrimSpace(doc.Collection) == "" || strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("backup: document without collection or id")
	}
	data := doc.Data
	if data == nil {
		data = types.Document{}
	}
	updated := doc.UpdateTime
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, upsert, doc.Collection, doc.ID, data, s.dialect.encodeTime(updated)); err != nil {
		return fmt.Errorf("insert %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

func (s *Service) openDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (s *Service) countDocuments(ctx context.Context, db *sqlx.DB) (map[string]int, error) {
	var rows []struct {
		Collection string `db:"collection"`
		Count      int    `db:"count"`
	}
	if err := db.SelectContext(ctx, &rows, `SELECT collection, COUNT(*) AS count FROM documents GROUP BY collection`); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Collection] = row.Count
	}
	return counts, nil
}

// selectCollections returns the requested collections, or every stored one,
// sorted for a deterministic order. Requested collections with no documents are kept.
func selectCollections(counts map[string]int, requested []string) ([]string, error) {
	set := make(map[string]struct{})
	if len(requested) == 0 {
		for c := range counts {
			set[c] = struct{}{}
		}
	} else {
		for _, name := range requested {
			if n := strings.TrimSpace(name); n != "" {
				set[n] = struct{}{}
			}
		}
		if len(set) == 0 {
			return nil, errNoCollectionsSelected
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func writeRecord(w io.Writer, rec record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
