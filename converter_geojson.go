package osm2pgr

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// PrepareGeoJSONEdges returns GeoJSON FeatureCollection of raw edges.
// Properties follow the layout GeoJSONProvider reads, so the output can be fed back
func PrepareGeoJSONEdges(edges []RawEdge) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for i := range edges {
		fc.AddFeature(rawEdgeToFeature(&edges[i]))
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal edges to GeoJSON")
	}
	return b, nil
}

func rawEdgeToFeature(edge *RawEdge) *geojson.Feature {
	var feature *geojson.Feature
	if len(edge.Geometry) > 0 {
		feature = geojson.NewLineStringFeature(lineToCoordinates(edge.Geometry))
	} else {
		feature = geojson.NewFeature(nil)
	}
	feature.SetProperty("u", int64(edge.U))
	feature.SetProperty("v", int64(edge.V))
	if edge.HasNodeIDs {
		feature.SetProperty("source", edge.Source)
		feature.SetProperty("target", edge.Target)
	}
	if length, ok := edge.lengthMeters(); ok {
		feature.SetProperty("length", length)
	}
	for key, value := range edge.Attributes {
		if len(value) == 1 {
			feature.SetProperty(key, value[0])
			continue
		}
		feature.SetProperty(key, []string(value))
	}
	if len(edge.Tags) > 0 {
		feature.SetProperty("tags", edge.Tags)
	}
	return feature
}

func lineToCoordinates(line orb.LineString) [][]float64 {
	pts2d := make([][]float64, len(line))
	for i, pt := range line {
		pts2d[i] = []float64{pt.X(), pt.Y()}
	}
	return pts2d
}

func coordinatesToLine(pts2d [][]float64) (orb.LineString, error) {
	line := make(orb.LineString, 0, len(pts2d))
	for _, pt := range pts2d {
		if len(pt) < 2 {
			return nil, errors.Errorf("Position should have at least 2 values, got %d", len(pt))
		}
		line = append(line, orb.Point{pt[0], pt[1]})
	}
	return line, nil
}
