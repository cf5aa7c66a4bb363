package osm2pgr

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

const (
	DEFAULT_TABLE_NAME   = "public_2po_4pgr"
	DEFAULT_INDEX_PREFIX = "osm2po_routing"
	DEFAULT_CHUNK_SIZE   = 1000
	DEFAULT_SRID         = 4326
)

var (
	ErrEmptyGeometry     = errors.New("Geometry should have at least two points")
	ErrInvalidCoordinate = errors.New("Geometry has non-finite coordinate")
)

const headerTemplate = `SET client_encoding = 'UTF8';

DROP TABLE IF EXISTS %[1]s;

CREATE TABLE %[1]s (
    id integer,
    osm_id bigint,
    osm_name character varying,
    osm_meta character varying,
    osm_source_id bigint,
    osm_target_id bigint,
    clazz integer,
    flags integer,
    source integer,
    target integer,
    km double precision,
    kmh integer,
    cost double precision,
    reverse_cost double precision,
    x1 double precision,
    y1 double precision,
    x2 double precision,
    y2 double precision
);
SELECT AddGeometryColumn('%[1]s', 'geom_way', %[2]d, 'LINESTRING', 2);

`

const trailerTemplate = `
-- Build spatial index after data load
CREATE INDEX IF NOT EXISTS %[2]s_geom_idx
    ON %[1]s USING GIST (geom_way);

-- Optional: Indexes on source/target for routing queries
CREATE INDEX IF NOT EXISTS %[2]s_source_idx
    ON %[1]s (source);
CREATE INDEX IF NOT EXISTS %[2]s_target_idx
    ON %[1]s (target);

-- Analyze table after index creation and data loading
ANALYZE %[1]s;
`

// sectionSeparator is put between header, each INSERT block and trailer
const sectionSeparator = "\n\n"

// SQLWriter serializes edge records into pgRouting-ready SQL script
type SQLWriter struct {
	tableName   string
	indexPrefix string
	chunkSize   int
	srid        int
	logger      *slog.Logger
}

// SerializeStats contains counters for serialized records
type SerializeStats struct {
	Rows    int
	Blocks  int
	Skipped int
}

// NewSQLWriter returns writer with default table name, chunk size and SRID unless options say otherwise
func NewSQLWriter(options ...func(*SQLWriter)) *SQLWriter {
	w := &SQLWriter{
		tableName:   DEFAULT_TABLE_NAME,
		indexPrefix: DEFAULT_INDEX_PREFIX,
		chunkSize:   DEFAULT_CHUNK_SIZE,
		srid:        DEFAULT_SRID,
		logger:      slog.Default(),
	}
	for _, option := range options {
		option(w)
	}
	return w
}

func WithTableName(tableName string) func(*SQLWriter) {
	return func(w *SQLWriter) {
		if tableName != "" {
			w.tableName = tableName
		}
	}
}

func WithIndexPrefix(indexPrefix string) func(*SQLWriter) {
	return func(w *SQLWriter) {
		if indexPrefix != "" {
			w.indexPrefix = indexPrefix
		}
	}
}

func WithChunkSize(chunkSize int) func(*SQLWriter) {
	return func(w *SQLWriter) {
		if chunkSize > 0 {
			w.chunkSize = chunkSize
		}
	}
}

func WithSRID(srid int) func(*SQLWriter) {
	return func(w *SQLWriter) {
		w.srid = srid
	}
}

func WithSQLLogger(logger *slog.Logger) func(*SQLWriter) {
	return func(w *SQLWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// String returns pretty printed value for SQLWriter
func (w *SQLWriter) String() string {
	return fmt.Sprintf("table: '%s' | index_prefix: '%s' | chunk_size: %d | srid: %d", w.tableName, w.indexPrefix, w.chunkSize, w.srid)
}

// Header returns table creation statements
func (w *SQLWriter) Header() string {
	return fmt.Sprintf(headerTemplate, w.tableName, w.srid)
}

// Trailer returns index creation and analyze statements
func (w *SQLWriter) Trailer() string {
	return fmt.Sprintf(trailerTemplate, w.tableName, w.indexPrefix)
}

// Row returns VALUES tuple for single record. Error is returned for bad geometry
func (w *SQLWriter) Row(id int, rec EdgeRecord) (string, error) {
	line := rec.Geometry
	if len(line) < 2 {
		return "", ErrEmptyGeometry
	}
	for _, pt := range line {
		if !isFinite(pt.X()) || !isFinite(pt.Y()) {
			return "", ErrInvalidCoordinate
		}
	}
	geomHex, err := ewkb.MarshalToHex(line, w.srid)
	if err != nil {
		return "", errors.Wrap(err, "Can't encode geometry")
	}
	first, last := line[0], line[len(line)-1]
	return fmt.Sprintf("(%d, %d, %s, NULL, %d, %d, %d, %d, %d, %d, %.7f, %d, %.7f, %.7f, %.7f, %.7f, %.7f, %.7f, '%s')",
		id,
		rec.OSMID,
		sqlText(rec.Name),
		rec.SourceOSMID,
		rec.TargetOSMID,
		rec.Clazz,
		rec.FlagsMask,
		rec.Source,
		rec.Target,
		rec.LengthKM,
		rec.SpeedKMH,
		rec.Cost,
		rec.ReverseCost,
		first.X(), first.Y(),
		last.X(), last.Y(),
		strings.ToUpper(geomHex),
	), nil
}

// row is Row which logs and drops edges with bad geometry
func (w *SQLWriter) row(id int, rec EdgeRecord) (string, bool) {
	row, err := w.Row(id, rec)
	if err != nil {
		w.logger.Warn("Skipping edge due to geometry error", "way", rec.OSMID, "geom", PrepareWKTLinestring(rec.Geometry), "err", err.Error())
		return "", false
	}
	return row, true
}

// Rows returns VALUES tuples for records. Row id is position of the record.
// Records with bad geometry are skipped, so ids could have gaps
func (w *SQLWriter) Rows(records []EdgeRecord) ([]string, SerializeStats) {
	stats := SerializeStats{}
	rows := make([]string, 0, len(records))
	for i := range records {
		row, ok := w.row(i, records[i])
		if !ok {
			stats.Skipped++
			continue
		}
		rows = append(rows, row)
	}
	stats.Rows = len(rows)
	return rows, stats
}

// insertBlock returns single INSERT statement for given rows
func (w *SQLWriter) insertBlock(rows []string) string {
	return "INSERT INTO " + w.tableName + " VALUES\n" + strings.Join(rows, ",\n") + ";\n"
}

// Blocks returns INSERT statements of at most chunkSize rows each. No records gives no blocks
func (w *SQLWriter) Blocks(records []EdgeRecord) ([]string, SerializeStats) {
	rows, stats := w.Rows(records)
	blocks := make([]string, 0, (len(rows)+w.chunkSize-1)/w.chunkSize)
	for i := 0; i < len(rows); i += w.chunkSize {
		end := i + w.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		blocks = append(blocks, w.insertBlock(rows[i:end]))
	}
	stats.Blocks = len(blocks)
	return blocks, stats
}

// Script returns whole SQL payload: header, INSERT blocks and trailer
func (w *SQLWriter) Script(records []EdgeRecord) (string, SerializeStats) {
	blocks, stats := w.Blocks(records)
	sections := make([]string, 0, len(blocks)+2)
	sections = append(sections, w.Header())
	sections = append(sections, blocks...)
	sections = append(sections, w.Trailer())
	return strings.Join(sections, sectionSeparator), stats
}

// WriteScript streams the same payload as Script does, holding one block in memory at a time
func (w *SQLWriter) WriteScript(out io.Writer, records []EdgeRecord) (SerializeStats, error) {
	stats := SerializeStats{}
	_, err := io.WriteString(out, w.Header())
	if err != nil {
		return stats, errors.Wrap(err, "Can't write header")
	}
	rows := make([]string, 0, w.chunkSize)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		_, err := io.WriteString(out, sectionSeparator+w.insertBlock(rows))
		if err != nil {
			return errors.Wrap(err, "Can't write INSERT block")
		}
		stats.Blocks++
		rows = rows[:0]
		return nil
	}
	for i := range records {
		row, ok := w.row(i, records[i])
		if !ok {
			stats.Skipped++
			continue
		}
		rows = append(rows, row)
		stats.Rows++
		if len(rows) == w.chunkSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	_, err = io.WriteString(out, sectionSeparator+w.Trailer())
	if err != nil {
		return stats, errors.Wrap(err, "Can't write trailer")
	}
	return stats, nil
}

// sqlText returns quoted literal with doubled single quotes, or NULL for empty string
func sqlText(s string) string {
	if s == "" {
		return "NULL"
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
