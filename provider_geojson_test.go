package osm2pgr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const testEdgesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "LineString", "coordinates": [[37.61, 55.75], [37.62, 55.76], [37.63, 55.76]]},
      "properties": {
        "u": 1, "v": 2,
        "osmid": [10, 11],
        "highway": ["primary", "secondary"],
        "oneway": true,
        "name": null,
        "ref": "A1",
        "length": 1200.5,
        "tags": {"surface": "asphalt", "lanes": 2}
      }
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [37.61, 55.75]},
      "properties": {"u": 3, "v": 4, "highway": "primary"}
    },
    {
      "type": "Feature",
      "id": 77,
      "geometry": {"type": "MultiLineString", "coordinates": [[[0, 0], [1, 1]], [[5, 5], [6, 6]]]},
      "properties": {"u": "2", "v": 3, "source": 5, "target": 6, "highway": "motorway"}
    }
  ]
}`

func writeTestFile(t *testing.T, name, content string) string {
	fname := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(fname, []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return fname
}

func TestGeoJSONProvider(t *testing.T) {
	provider := NewGeoJSONProvider(writeTestFile(t, "edges.geojson", testEdgesGeoJSON), nil)
	edges, err := provider.Edges(context.Background())
	if err != nil {
		t.Error(err)
		return
	}
	if len(edges) != 2 {
		t.Errorf("Must be 2 edges (Point feature skipped), but got %d", len(edges))
		return
	}

	first := edges[0]
	if first.U != 1 || first.V != 2 {
		t.Errorf("Nodes must be 1 -> 2, but got %d -> %d", first.U, first.V)
	}
	if first.HasNodeIDs {
		t.Errorf("First edge must not have node IDs")
	}
	if first.Length != 1200.5 {
		t.Errorf("Length must be 1200.5, but got %f", first.Length)
	}
	if len(first.Geometry) != 3 || !first.Geometry[2].Equal(orb.Point{37.63, 55.76}) {
		t.Errorf("Geometry must have 3 points ending with (37.63, 55.76), but got %v", first.Geometry)
	}
	highway := first.Attributes[TAG_HIGHWAY]
	if !highway.IsList() || highway[0] != "primary" {
		t.Errorf("Highway must be list starting with 'primary', but got %s", highway)
	}
	if oneway, _ := first.Attributes[TAG_ONEWAY].First(); oneway != "true" {
		t.Errorf("Oneway must be 'true', but got '%s'", oneway)
	}
	if _, ok := first.Attributes[TAG_NAME]; ok {
		t.Errorf("Null name must be absent")
	}
	if osmid, _ := first.Attributes[TAG_OSMID].First(); osmid != "10" {
		t.Errorf("First osmid must be '10', but got '%s'", osmid)
	}
	if first.Tags["surface"] != "asphalt" || first.Tags["lanes"] != "2" {
		t.Errorf("Tags must be {surface: asphalt, lanes: 2}, but got %v", first.Tags)
	}

	second := edges[1]
	if second.U != 2 || second.V != 3 {
		t.Errorf("Nodes must be 2 -> 3, but got %d -> %d", second.U, second.V)
	}
	if !second.HasNodeIDs || second.Source != 5 || second.Target != 6 {
		t.Errorf("Node IDs must be 5 -> 6, but got %d -> %d (%t)", second.Source, second.Target, second.HasNodeIDs)
	}
	if len(second.Geometry) != 2 || !second.Geometry[1].Equal(orb.Point{1, 1}) {
		t.Errorf("First part of MultiLineString must be used, but got %v", second.Geometry)
	}
	if osmid, _ := second.Attributes[TAG_OSMID].First(); osmid != "77" {
		t.Errorf("Feature ID must be used as osmid, but got '%s'", osmid)
	}

	rules := NewRuleTable(map[string]WayRule{
		"primary":  {Clazz: 15, MaxSpeed: 70, Flags: []string{"car", "bike"}},
		"motorway": {Clazz: 11, MaxSpeed: 120, Flags: []string{"car"}},
	}, "", nil)
	processor := NewEdgeProcessor(rules, nil)
	outcome := processor.ProcessEdge(0, &edges[0])
	if outcome.Record.Clazz != 15 || outcome.Record.Name != "A1" || outcome.Record.OSMID != 10 {
		t.Errorf("Record must be (clazz 15, name 'A1', osm_id 10), but got (%d, '%s', %d)", outcome.Record.Clazz, outcome.Record.Name, outcome.Record.OSMID)
	}
	if outcome.Record.ReverseCost != BLOCKING_COST {
		t.Errorf("Oneway 'true' must block reverse direction, but got %f", outcome.Record.ReverseCost)
	}
}

func TestGeoJSONProviderUnavailable(t *testing.T) {
	provider := NewGeoJSONProvider(filepath.Join(t.TempDir(), "no_such_file.geojson"), nil)
	_, err := provider.Edges(context.Background())
	if errors.Cause(err) != ErrProviderUnavailable {
		t.Errorf("Missing file must give '%v', but got '%v'", ErrProviderUnavailable, err)
	}

	provider = NewGeoJSONProvider(writeTestFile(t, "broken.geojson", "{not a json"), nil)
	_, err = provider.Edges(context.Background())
	if errors.Cause(err) != ErrProviderUnavailable {
		t.Errorf("Broken file must give '%v', but got '%v'", ErrProviderUnavailable, err)
	}
}

func TestGeoJSONExportReadBack(t *testing.T) {
	edge := NewRawEdge(10, 20, orb.LineString{{1, 2}, {3, 4}})
	edge.Length = 150
	edge.SetAttribute(TAG_HIGHWAY, List("residential", "service"))
	edge.SetAttribute(TAG_NAME, Scalar("Main St"))
	edge.Tags = map[string]string{"surface": "gravel"}
	edge.SetNodeIDs(0, 1)

	b, err := PrepareGeoJSONEdges([]RawEdge{edge})
	if err != nil {
		t.Error(err)
		return
	}
	provider := NewGeoJSONProvider(writeTestFile(t, "export.geojson", string(b)), nil)
	edges, err := provider.Edges(context.Background())
	if err != nil {
		t.Error(err)
		return
	}
	if len(edges) != 1 {
		t.Errorf("Must be 1 edge, but got %d", len(edges))
		return
	}
	back := edges[0]
	if back.U != 10 || back.V != 20 || back.Source != 0 || back.Target != 1 || !back.HasNodeIDs {
		t.Errorf("Nodes must be 10 -> 20 (0 -> 1), but got %d -> %d (%d -> %d)", back.U, back.V, back.Source, back.Target)
	}
	if back.Length != 150 {
		t.Errorf("Length must be 150, but got %f", back.Length)
	}
	if back.Attributes[TAG_HIGHWAY].String() != "[residential,service]" {
		t.Errorf("Highway must be [residential,service], but got %s", back.Attributes[TAG_HIGHWAY])
	}
	if back.Attributes[TAG_NAME].String() != "Main St" {
		t.Errorf("Name must be 'Main St', but got %s", back.Attributes[TAG_NAME])
	}
	if back.Tags["surface"] != "gravel" {
		t.Errorf("Tag 'surface' must be 'gravel', but got '%s'", back.Tags["surface"])
	}
	if PrepareWKTLinestring(back.Geometry) != "LINESTRING(1 2,3 4)" {
		t.Errorf("Geometry must be LINESTRING(1 2,3 4), but got %s", PrepareWKTLinestring(back.Geometry))
	}
}

func TestNewFileProvider(t *testing.T) {
	cases := []struct {
		fileName string
		isOSM    bool
		isErr    bool
	}{
		{"graph.geojson", false, false},
		{"graph.JSON", false, false},
		{"map.osm", true, false},
		{"map.osm.pbf", true, false},
		{"map.shp", false, true},
	}
	for _, c := range cases {
		provider, err := NewFileProvider(c.fileName, nil)
		if c.isErr {
			if err == nil {
				t.Errorf("File '%s' must not be handled", c.fileName)
			}
			continue
		}
		if err != nil {
			t.Error(err)
			continue
		}
		_, isOSM := provider.(*OSMFileProvider)
		if isOSM != c.isOSM {
			t.Errorf("Provider for '%s' must be OSM provider: %t, but got %T", c.fileName, c.isOSM, provider)
		}
	}
}
