package osm2pgr

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// Builder glues provider, edge processor and SQL writer together
type Builder struct {
	rules       *RuleTable
	sqlWriter   *SQLWriter
	sqlFile     string
	geojsonFile string
	logger      *slog.Logger
}

// BuildResult is best-effort outcome of Build. Records stay valid even if writing files failed
type BuildResult struct {
	Edges          []RawEdge
	Records        []EdgeRecord
	NodesNum       int
	Stats          ProcessStats
	SerializeStats SerializeStats
	// Empty when file has not been written
	SQLFile     string
	GeoJSONFile string
	// Provider failure (or unexpected panic). No SQL is produced
	Err             error
	SQLWriteErr     error
	GeoJSONWriteErr error
}

func (builder *Builder) String() string {
	return fmt.Sprintf(`
Network builder parameters:
	sql_file: '%s'
	geojson_file: '%s'
	sql: %s
	%s`,
		builder.sqlFile,
		builder.geojsonFile,
		builder.sqlWriter,
		builder.rules,
	)
}

// NewBuilder returns builder. Nil rule table means DefaultRuleTable()
func NewBuilder(rules *RuleTable, options ...func(*Builder)) *Builder {
	if rules == nil {
		rules = DefaultRuleTable()
	}
	builder := &Builder{
		rules:  rules,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(builder)
	}
	if builder.sqlWriter == nil {
		builder.sqlWriter = NewSQLWriter(WithSQLLogger(builder.logger))
	}
	return builder
}

func WithSQLFile(fileName string) func(*Builder) {
	return func(builder *Builder) {
		builder.sqlFile = fileName
	}
}

func WithGeoJSONFile(fileName string) func(*Builder) {
	return func(builder *Builder) {
		builder.geojsonFile = fileName
	}
}

func WithSQLWriter(sqlWriter *SQLWriter) func(*Builder) {
	return func(builder *Builder) {
		builder.sqlWriter = sqlWriter
	}
}

func WithLogger(logger *slog.Logger) func(*Builder) {
	return func(builder *Builder) {
		if logger != nil {
			builder.logger = logger
		}
	}
}

// Build runs the whole pipeline: edges -> node IDs -> (GeoJSON) -> records -> SQL file.
// It never fails as a whole: problems are reported via BuildResult fields
func (builder *Builder) Build(ctx context.Context, provider EdgeProvider) (result BuildResult) {
	defer func() {
		if r := recover(); r != nil {
			result.Err = errors.Errorf("Unexpected failure while building road network: %v", r)
			builder.logger.Error("Error building road network", "err", result.Err.Error())
		}
	}()

	st := time.Now()
	edges, err := provider.Edges(ctx)
	if err != nil {
		result.Err = errors.Wrap(err, "Can't get edges from provider")
		builder.logger.Error("Road graph provider is not available. Can't build road network", "err", err.Error())
		return result
	}
	builder.logger.Info("Edges loaded", "edges", len(edges), "elapsed", time.Since(st))

	if hasAllNodeIDs(edges) {
		result.NodesNum = countNodes(edges)
	} else {
		result.NodesNum = AssignNodeIDs(edges)
	}
	result.Edges = edges

	if builder.geojsonFile != "" {
		err = writeFile(builder.geojsonFile, func(w *bufio.Writer) error {
			b, err := PrepareGeoJSONEdges(edges)
			if err != nil {
				return err
			}
			_, err = w.Write(b)
			return err
		})
		if err != nil {
			result.GeoJSONWriteErr = err
			builder.logger.Error("Error exporting network to GeoJSON", "file", builder.geojsonFile, "err", err.Error())
		} else {
			result.GeoJSONFile = builder.geojsonFile
			builder.logger.Info("Saved road network to GeoJSON", "file", builder.geojsonFile)
		}
	}

	processor := NewEdgeProcessor(builder.rules, builder.logger)
	result.Records, result.Stats = processor.Process(edges)

	if builder.sqlFile == "" {
		_, result.SerializeStats = builder.sqlWriter.Blocks(result.Records)
		return result
	}
	err = writeFile(builder.sqlFile, func(w *bufio.Writer) error {
		var err error
		result.SerializeStats, err = builder.sqlWriter.WriteScript(w, result.Records)
		return err
	})
	if err != nil {
		result.SQLWriteErr = err
		builder.logger.Error("Error writing SQL file", "file", builder.sqlFile, "err", err.Error())
		return result
	}
	if result.SerializeStats.Rows == 0 {
		builder.logger.Warn("No insert statements generated")
	}
	result.SQLFile = builder.sqlFile
	builder.logger.Info("All SQL commands written", "file", builder.sqlFile, "rows", result.SerializeStats.Rows, "blocks", result.SerializeStats.Blocks, "skipped", result.SerializeStats.Skipped)
	return result
}

// BuildNetwork is shortcut for NewBuilder(rules, options...).Build(ctx, provider)
func BuildNetwork(ctx context.Context, provider EdgeProvider, rules *RuleTable, options ...func(*Builder)) BuildResult {
	return NewBuilder(rules, options...).Build(ctx, provider)
}

func countNodes(edges []RawEdge) int {
	seen := make(map[int64]struct{}, len(edges))
	for i := range edges {
		seen[edges[i].Source] = struct{}{}
		seen[edges[i].Target] = struct{}{}
	}
	return len(seen)
}

// writeFile creates file and fills it. File is removed if anything fails after creation
func writeFile(fileName string, write func(w *bufio.Writer) error) (err error) {
	file, err := os.Create(fileName)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(fileName)
		}
	}()
	w := bufio.NewWriter(file)
	err = write(w)
	if err != nil {
		return err
	}
	err = w.Flush()
	if err != nil {
		return errors.Wrap(err, "Can't flush file")
	}
	err = file.Close()
	if err != nil {
		return errors.Wrap(err, "Can't close file")
	}
	return nil
}
