package osm2pgr

import (
	"context"
	"math"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// GeoJSONProvider reads edge table stored as GeoJSON FeatureCollection of LineStrings.
// Each feature carries `u`, `v`, `osmid`, `highway`, `oneway`, `name`, `ref`, `length` and optional
// `tags` object and `source`/`target` properties. Any of them may be a list
type GeoJSONProvider struct {
	fileName string
	logger   *slog.Logger
}

// NewGeoJSONProvider returns provider for given file. Nil logger means slog.Default()
func NewGeoJSONProvider(fileName string, logger *slog.Logger) *GeoJSONProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeoJSONProvider{
		fileName: fileName,
		logger:   logger,
	}
}

// Edges reads the file. Features which can't be edges are skipped with a warning
func (p *GeoJSONProvider) Edges(ctx context.Context) ([]RawEdge, error) {
	data, err := os.ReadFile(p.fileName)
	if err != nil {
		return nil, errors.Wrapf(ErrProviderUnavailable, "Can't read file '%s': %s", p.fileName, err.Error())
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(ErrProviderUnavailable, "Can't parse GeoJSON '%s': %s", p.fileName, err.Error())
	}
	return p.edgesFromFeatures(ctx, fc.Features)
}

func (p *GeoJSONProvider) edgesFromFeatures(ctx context.Context, features []*geojson.Feature) ([]RawEdge, error) {
	edges := make([]RawEdge, 0, len(features))
	for i, feature := range features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		edge, err := featureToRawEdge(feature)
		if err != nil {
			p.logger.Warn("Skipping feature", "feature", i, "err", err.Error())
			continue
		}
		edges = append(edges, edge)
	}
	p.logger.Info("Edges loaded from GeoJSON", "file", p.fileName, "edges", len(edges), "features", len(features))
	return edges, nil
}

var (
	// Properties which are not attributes of the edge
	geojsonReservedProperties = map[string]struct{}{
		"u":      {},
		"v":      {},
		"source": {},
		"target": {},
		"length": {},
		"tags":   {},
	}
)

func featureToRawEdge(feature *geojson.Feature) (RawEdge, error) {
	if feature == nil {
		return RawEdge{}, errors.New("Feature is null")
	}
	edge := NewRawEdge(-1, -1, nil)
	if feature.Geometry != nil {
		var pts2d [][]float64
		switch feature.Geometry.Type {
		case geojson.GeometryLineString:
			pts2d = feature.Geometry.LineString
		case geojson.GeometryMultiLineString:
			if len(feature.Geometry.MultiLineString) > 0 {
				pts2d = feature.Geometry.MultiLineString[0]
			}
		default:
			return RawEdge{}, errors.Errorf("Geometry type '%s' is not supported", feature.Geometry.Type)
		}
		line, err := coordinatesToLine(pts2d)
		if err != nil {
			return RawEdge{}, errors.Wrap(err, "Bad LineString")
		}
		edge.Geometry = line
	}

	props := feature.Properties
	if u, ok := firstFloat(props["u"]); ok {
		edge.U = osm.NodeID(int64(u))
	}
	if v, ok := firstFloat(props["v"]); ok {
		edge.V = osm.NodeID(int64(v))
	}
	source, okSource := firstFloat(props["source"])
	target, okTarget := firstFloat(props["target"])
	if okSource && okTarget {
		edge.SetNodeIDs(int64(source), int64(target))
	}
	if length, ok := firstFloat(props["length"]); ok && !math.IsNaN(length) {
		edge.Length = length
	}
	if tags, ok := props["tags"].(map[string]interface{}); ok {
		edge.Tags = make(map[string]string, len(tags))
		for k, raw := range tags {
			value, ok := tagValueFromAny(raw)
			if !ok {
				continue
			}
			if first, ok := value.First(); ok {
				edge.Tags[k] = first
			}
		}
	}
	for key, raw := range props {
		if _, reserved := geojsonReservedProperties[key]; reserved {
			continue
		}
		value, ok := tagValueFromAny(raw)
		if !ok {
			continue
		}
		edge.SetAttribute(key, value)
	}
	if _, ok := edge.Attributes[TAG_OSMID]; !ok && feature.ID != nil {
		if value, ok := tagValueFromAny(feature.ID); ok {
			edge.SetAttribute(TAG_OSMID, value)
		}
	}
	return edge, nil
}
