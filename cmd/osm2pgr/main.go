package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/LdDl/osm2pgr"
	"github.com/urfave/cli/v3"
	"golang.org/x/exp/slog"
)

func main() {
	root := &cli.Command{
		Name:  "osm2pgr",
		Usage: "Convert road graph (OSM XML/PBF or GeoJSON edge table) into pgRouting SQL script",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Value: "my_graph.osm.pbf", Usage: "Input file: *.osm, *.osm.pbf or *.geojson edge table"},
			&cli.StringFlag{Name: "config", Value: "osm2po_config.yaml", Usage: "Rule table (YAML). Built-in defaults are used if file doesn't exist"},
			&cli.StringFlag{Name: "out", Value: "ways_public_2po_4pgr.sql", Usage: "Output SQL file"},
			&cli.StringFlag{Name: "geojson", Usage: "Optional GeoJSON export of the edge table"},
			&cli.StringFlag{Name: "table", Value: osm2pgr.DEFAULT_TABLE_NAME, Usage: "Name of the routing table"},
			&cli.IntFlag{Name: "chunk", Value: osm2pgr.DEFAULT_CHUNK_SIZE, Usage: "Max number of rows in single INSERT statement"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log every skipped edge"},
		},
		Action: run,
	}
	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rules, err := osm2pgr.LoadRuleTable(cmd.String("config"), logger)
	if err != nil {
		return err
	}
	provider, err := osm2pgr.NewFileProvider(cmd.String("file"), logger)
	if err != nil {
		return err
	}
	sqlWriter := osm2pgr.NewSQLWriter(
		osm2pgr.WithTableName(cmd.String("table")),
		osm2pgr.WithChunkSize(int(cmd.Int("chunk"))),
		osm2pgr.WithSQLLogger(logger),
	)
	builder := osm2pgr.NewBuilder(rules,
		osm2pgr.WithSQLFile(cmd.String("out")),
		osm2pgr.WithGeoJSONFile(cmd.String("geojson")),
		osm2pgr.WithSQLWriter(sqlWriter),
		osm2pgr.WithLogger(logger),
	)
	logger.Debug(builder.String())

	result := builder.Build(ctx, provider)
	if result.Err != nil {
		return result.Err
	}
	fmt.Printf("Edges: %d | Nodes: %d | Kept: %d | Skipped (mask / clazz 0): %d / %d\n",
		result.Stats.Total, result.NodesNum, result.Stats.Kept,
		result.Stats.Skipped[osm2pgr.SKIP_FINAL_MASK], result.Stats.Skipped[osm2pgr.SKIP_UNCLASSIFIED],
	)
	if result.SQLWriteErr != nil {
		return result.SQLWriteErr
	}
	fmt.Printf("SQL: '%s' (%d rows in %d INSERT blocks, %d dropped due to geometry)\n",
		result.SQLFile, result.SerializeStats.Rows, result.SerializeStats.Blocks, result.SerializeStats.Skipped,
	)
	if result.GeoJSONFile != "" {
		fmt.Printf("GeoJSON: '%s'\n", result.GeoJSONFile)
	}
	return nil
}
