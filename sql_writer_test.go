package osm2pgr

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

func testRecord(osmID int64, name string) EdgeRecord {
	return EdgeRecord{
		OSMID:       osm.WayID(osmID),
		Name:        name,
		SourceOSMID: 100,
		TargetOSMID: 200,
		Clazz:       11,
		Flags:       NewFlagSet("car"),
		FlagsMask:   1,
		Source:      0,
		Target:      1,
		LengthKM:    2.0,
		SpeedKMH:    120,
		Cost:        2.0 / 120.0,
		ReverseCost: BLOCKING_COST,
		Oneway:      true,
		Geometry:    orb.LineString{{1, 2}, {3, 4}},
	}
}

func TestSQLRow(t *testing.T) {
	w := NewSQLWriter()
	row, err := w.Row(0, testRecord(42, "O'Brien"))
	if err != nil {
		t.Error(err)
		return
	}
	correctRow := "(0, 42, 'O''Brien', NULL, 100, 200, 11, 1, 0, 1, 2.0000000, 120, 0.0166667, 100000.0000000, 1.0000000, 2.0000000, 3.0000000, 4.0000000, " +
		"'0102000020E6100000" + "02000000" +
		"000000000000F03F" + "0000000000000040" +
		"0000000000000840" + "0000000000001040')"
	if row != correctRow {
		t.Errorf("Row must be:\n%s\nbut got:\n%s", correctRow, row)
	}
}

func TestSQLRowNullName(t *testing.T) {
	w := NewSQLWriter()
	row, err := w.Row(3, testRecord(42, ""))
	if err != nil {
		t.Error(err)
		return
	}
	if !strings.HasPrefix(row, "(3, 42, NULL, NULL, ") {
		t.Errorf("Empty name must be written as NULL, but got %s", row)
	}
}

func TestSQLRowBadGeometry(t *testing.T) {
	w := NewSQLWriter()
	cases := []struct {
		geom orb.LineString
		err  error
	}{
		{nil, ErrEmptyGeometry},
		{orb.LineString{{1, 2}}, ErrEmptyGeometry},
		{orb.LineString{{1, 2}, {math.NaN(), 4}}, ErrInvalidCoordinate},
		{orb.LineString{{math.Inf(-1), 2}, {3, 4}}, ErrInvalidCoordinate},
	}
	for i, c := range cases {
		rec := testRecord(1, "")
		rec.Geometry = c.geom
		_, err := w.Row(0, rec)
		if !errors.Is(err, c.err) {
			t.Errorf("Case %d: error must be '%v', but got '%v'", i, c.err, err)
		}
	}
}

func TestSQLRowsSkipBadGeometry(t *testing.T) {
	w := NewSQLWriter()
	records := []EdgeRecord{testRecord(1, "a"), testRecord(2, "b"), testRecord(3, "c")}
	records[1].Geometry = orb.LineString{{1, 1}}
	rows, stats := w.Rows(records)
	if len(rows) != 2 || stats.Rows != 2 || stats.Skipped != 1 {
		t.Errorf("Must be 2 rows and 1 skipped, but got %d rows (%d) and %d skipped", len(rows), stats.Rows, stats.Skipped)
		return
	}
	if !strings.HasPrefix(rows[0], "(0, 1, ") {
		t.Errorf("First row must have id 0, but got %s", rows[0])
	}
	if !strings.HasPrefix(rows[1], "(2, 3, ") {
		t.Errorf("Second row must keep record position as id (2), but got %s", rows[1])
	}
}

func TestSQLBlocksEmpty(t *testing.T) {
	w := NewSQLWriter()
	blocks, stats := w.Blocks(nil)
	if len(blocks) != 0 || stats.Blocks != 0 {
		t.Errorf("No records must give no blocks, but got %d", len(blocks))
	}
	script, _ := w.Script(nil)
	if script != w.Header()+"\n\n"+w.Trailer() {
		t.Errorf("Script without records must contain header and trailer only, but got:\n%s", script)
	}
	if strings.Contains(script, "INSERT INTO") {
		t.Errorf("Script without records must not contain INSERT statements")
	}
}

func TestSQLBlocksChunking(t *testing.T) {
	w := NewSQLWriter(WithChunkSize(1000))
	records := make([]EdgeRecord, 2500)
	for i := range records {
		records[i] = testRecord(int64(i), "")
	}
	blocks, stats := w.Blocks(records)
	if len(blocks) != 3 {
		t.Errorf("Must be 3 blocks, but got %d", len(blocks))
		return
	}
	if stats.Rows != 2500 || stats.Blocks != 3 {
		t.Errorf("Stats must be 2500 rows in 3 blocks, but got %d rows in %d blocks", stats.Rows, stats.Blocks)
	}
	correctSizes := []int{1000, 1000, 500}
	correctFirstIDs := []string{"(0, 0, ", "(1000, 1000, ", "(2000, 2000, "}
	for i, block := range blocks {
		if !strings.HasPrefix(block, "INSERT INTO public_2po_4pgr VALUES\n") {
			t.Errorf("Block %d must start with INSERT statement, but got %s", i, block[:40])
		}
		if !strings.HasSuffix(block, ");\n") {
			t.Errorf("Block %d must end with ';' and newline", i)
		}
		rows := strings.Count(block, "\n(")
		if rows != correctSizes[i] {
			t.Errorf("Block %d must have %d rows, but got %d", i, correctSizes[i], rows)
		}
		if !strings.Contains(block, "VALUES\n"+correctFirstIDs[i]) {
			t.Errorf("Block %d must start with row %s", i, correctFirstIDs[i])
		}
	}
}

func TestSQLScriptMatchesWriteScript(t *testing.T) {
	w := NewSQLWriter(WithChunkSize(2), WithTableName("roads"), WithIndexPrefix("roads"))
	records := []EdgeRecord{testRecord(1, "a"), testRecord(2, "b"), testRecord(3, "c"), testRecord(4, "d'd"), testRecord(5, "")}
	records[2].Geometry = nil
	script, stats := w.Script(records)
	var buf bytes.Buffer
	streamStats, err := w.WriteScript(&buf, records)
	if err != nil {
		t.Error(err)
		return
	}
	if buf.String() != script {
		t.Errorf("Streamed script must be equal to in-memory one.\nStreamed:\n%s\nIn-memory:\n%s", buf.String(), script)
	}
	if stats != streamStats {
		t.Errorf("Stats must be equal: %+v vs %+v", stats, streamStats)
	}
	if stats.Rows != 4 || stats.Blocks != 2 || stats.Skipped != 1 {
		t.Errorf("Stats must be 4 rows, 2 blocks and 1 skipped, but got %+v", stats)
	}
	if !strings.HasPrefix(script, "SET client_encoding = 'UTF8';\n\nDROP TABLE IF EXISTS roads;") {
		t.Errorf("Script must start with header for table 'roads'")
	}
	if !strings.Contains(script, "SELECT AddGeometryColumn('roads', 'geom_way', 4326, 'LINESTRING', 2);") {
		t.Errorf("Script must add geometry column with SRID 4326")
	}
	if !strings.Contains(script, "CREATE INDEX IF NOT EXISTS roads_geom_idx\n    ON roads USING GIST (geom_way);") {
		t.Errorf("Script must create spatial index")
	}
	if !strings.HasSuffix(script, "ANALYZE roads;\n") {
		t.Errorf("Script must end with ANALYZE statement")
	}
	if !strings.Contains(script, "'d''d'") {
		t.Errorf("Quotes in names must be doubled")
	}
}

func TestSQLWriterIgnoresBadChunkSize(t *testing.T) {
	w := NewSQLWriter(WithChunkSize(0), WithChunkSize(-5))
	if w.chunkSize != DEFAULT_CHUNK_SIZE {
		t.Errorf("Chunk size must stay %d, but got %d", DEFAULT_CHUNK_SIZE, w.chunkSize)
	}
}

func TestSQLText(t *testing.T) {
	cases := map[string]string{
		"":        "NULL",
		"Main St": "'Main St'",
		"O'Brien": "'O''Brien'",
		"''":      "''''''",
	}
	for in, correct := range cases {
		if out := sqlText(in); out != correct {
			t.Errorf("Literal for '%s' must be %s, but got %s", in, correct, out)
		}
	}
}
