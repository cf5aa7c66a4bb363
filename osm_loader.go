package osm2pgr

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// OSMScanner is common interface for osmxml and osmpbf scanners
type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// OSMFileProvider extracts road segments from *.osm (XML) or *.osm.pbf file.
// Ways with `highway` tag are split at nodes shared with other ways
type OSMFileProvider struct {
	fileName string
	logger   *slog.Logger
}

// NewOSMFileProvider returns provider for given file. Nil logger means slog.Default()
func NewOSMFileProvider(fileName string, logger *slog.Logger) *OSMFileProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &OSMFileProvider{
		fileName: fileName,
		logger:   logger,
	}
}

func (p *OSMFileProvider) newScanner(ctx context.Context, file io.Reader) (OSMScanner, error) {
	ext := strings.ToLower(filepath.Ext(p.fileName))
	switch ext {
	case ".osm", ".xml":
		return osmxml.New(ctx, file), nil
	case ".pbf":
		return osmpbf.New(ctx, file, runtime.GOMAXPROCS(-1)), nil
	default:
		return nil, fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, p.fileName)
	}
}

type highwayWay struct {
	ID    osm.WayID
	Nodes []osm.NodeID
	Tags  osm.Tags
}

// Edges scans the file twice: ways first, then coordinates of their nodes
func (p *OSMFileProvider) Edges(ctx context.Context) ([]RawEdge, error) {
	file, err := os.Open(p.fileName)
	if err != nil {
		return nil, errors.Wrapf(ErrProviderUnavailable, "Can't open file '%s': %s", p.fileName, err.Error())
	}
	defer file.Close()
	return p.readEdges(ctx, file)
}

// readEdges does both scans over the same source, rewinding it in between
func (p *OSMFileProvider) readEdges(ctx context.Context, file io.ReadSeeker) ([]RawEdge, error) {
	st := time.Now()
	ways, useCount, err := p.scanWays(ctx, file)
	if err != nil {
		return nil, errors.Wrapf(ErrProviderUnavailable, "Can't scan ways: %s", err.Error())
	}
	p.logger.Info("Ways scanned", "ways", len(ways), "nodes", len(useCount), "elapsed", time.Since(st))

	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.Wrapf(ErrProviderUnavailable, "Can't repeat seeking after ways scanning: %s", err.Error())
	}

	st = time.Now()
	coords, err := p.scanNodes(ctx, file, useCount)
	if err != nil {
		return nil, errors.Wrapf(ErrProviderUnavailable, "Can't scan nodes: %s", err.Error())
	}
	p.logger.Info("Nodes scanned", "nodes", len(coords), "elapsed", time.Since(st))

	edges := make([]RawEdge, 0, len(ways))
	for _, way := range ways {
		segments, err := splitWay(way, useCount, coords)
		if err != nil {
			p.logger.Warn("Skipping way", "way", way.ID, "err", err.Error())
			continue
		}
		edges = append(edges, segments...)
	}
	p.logger.Info("Edges prepared", "edges", len(edges))
	return edges, nil
}

// scanWays collects highways and counts how many times each node is used. Way ends count twice
func (p *OSMFileProvider) scanWays(ctx context.Context, file io.Reader) ([]highwayWay, map[osm.NodeID]int, error) {
	scanner, err := p.newScanner(ctx, file)
	if err != nil {
		return nil, nil, err
	}
	defer scanner.Close()

	ways := []highwayWay{}
	useCount := make(map[osm.NodeID]int)
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if way.Tags.Find(TAG_HIGHWAY) == "" {
			continue
		}
		if len(way.Nodes) < 2 {
			p.logger.Debug("Way with less than 2 nodes met", "way", way.ID, "nodes", len(way.Nodes))
			continue
		}
		prepared := highwayWay{
			ID:    way.ID,
			Nodes: way.Nodes.NodeIDs(),
			Tags:  make(osm.Tags, len(way.Tags)),
		}
		copy(prepared.Tags, way.Tags)
		for i, nodeID := range prepared.Nodes {
			if i == 0 || i == len(prepared.Nodes)-1 {
				useCount[nodeID] += 2
			} else {
				useCount[nodeID]++
			}
		}
		ways = append(ways, prepared)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return ways, useCount, nil
}

// scanNodes returns coordinates of nodes which are used by collected ways
func (p *OSMFileProvider) scanNodes(ctx context.Context, file io.Reader, useCount map[osm.NodeID]int) (map[osm.NodeID]orb.Point, error) {
	scanner, err := p.newScanner(ctx, file)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	coords := make(map[osm.NodeID]orb.Point, len(useCount))
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, ok := useCount[node.ID]; !ok {
			continue
		}
		coords[node.ID] = orb.Point{node.Lon, node.Lat}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return coords, nil
}

// splitWay cuts way into segments at nodes used more than once
func splitWay(way highwayWay, useCount map[osm.NodeID]int, coords map[osm.NodeID]orb.Point) ([]RawEdge, error) {
	segments := []RawEdge{}
	source := way.Nodes[0]
	firstPt, ok := coords[source]
	if !ok {
		return nil, fmt.Errorf("No such node '%d'", source)
	}
	geometry := orb.LineString{firstPt}
	for _, nodeID := range way.Nodes[1:] {
		pt, ok := coords[nodeID]
		if !ok {
			return nil, fmt.Errorf("No such node '%d'", nodeID)
		}
		geometry = append(geometry, pt)
		if useCount[nodeID] > 1 {
			segments = append(segments, newOSMSegment(way, source, nodeID, geometry))
			source = nodeID
			geometry = orb.LineString{pt}
		}
	}
	return segments, nil
}

func newOSMSegment(way highwayWay, source, target osm.NodeID, geometry orb.LineString) RawEdge {
	edge := NewRawEdge(source, target, geometry)
	edge.Length = geo.Length(geometry)
	edge.SetAttribute(TAG_OSMID, Scalar(fmt.Sprintf("%d", way.ID)))
	for _, key := range []string{TAG_HIGHWAY, TAG_ONEWAY, TAG_NAME, TAG_REF} {
		if value := way.Tags.Find(key); value != "" {
			edge.SetAttribute(key, Scalar(value))
		}
	}
	edge.Tags = way.Tags.Map()
	return edge
}
