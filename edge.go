package osm2pgr

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// RawEdge is single road segment as it comes from graph provider
type RawEdge struct {
	// OSM nodes at both ends of the segment
	U osm.NodeID
	V osm.NodeID
	// Sequential node IDs. Meaningful only when HasNodeIDs is set, otherwise -1 is written
	Source     int64
	Target     int64
	HasNodeIDs bool
	// Length in meters. Zero, negative or non-finite value means "unknown"
	Length   float64
	Geometry orb.LineString
	// Top-level attributes: highway, oneway, name, ref, osmid
	Attributes map[string]TagValue
	// Nested tags (if provider has them). They override `highway` attribute
	Tags map[string]string
}

// NewRawEdge returns edge between two OSM nodes with no attributes
func NewRawEdge(u, v osm.NodeID, geom orb.LineString) RawEdge {
	return RawEdge{
		U:          u,
		V:          v,
		Source:     -1,
		Target:     -1,
		Geometry:   geom,
		Attributes: make(map[string]TagValue),
	}
}

// SetAttribute sets top-level attribute
func (edge *RawEdge) SetAttribute(key string, value TagValue) {
	if edge.Attributes == nil {
		edge.Attributes = make(map[string]TagValue)
	}
	edge.Attributes[key] = value
}

// SetNodeIDs sets sequential node IDs
func (edge *RawEdge) SetNodeIDs(source, target int64) {
	edge.Source = source
	edge.Target = target
	edge.HasNodeIDs = true
}

// edgeAttributes is the flattened view of RawEdge: every list-valued attribute reduced to its first element
type edgeAttributes struct {
	highway    string
	hasHighway bool
	oneway     string
	name       string
	ref        string
	osmID      osm.WayID
	tags       map[string]string
}

// normalize flattens list-valued attributes. Index is position of the edge in provider's output,
// it is used as OSM ID if edge has no (parsable) `osmid`
func (edge *RawEdge) normalize(index int) edgeAttributes {
	attrs := edgeAttributes{
		oneway: "no",
		osmID:  osm.WayID(index),
	}
	if v, ok := edge.Attributes[TAG_HIGHWAY].First(); ok {
		attrs.highway = v
		attrs.hasHighway = true
	}
	if v, ok := edge.Attributes[TAG_ONEWAY].First(); ok {
		attrs.oneway = v
	}
	attrs.name, _ = edge.Attributes[TAG_NAME].First()
	attrs.ref, _ = edge.Attributes[TAG_REF].First()
	if v, ok := edge.Attributes[TAG_OSMID].First(); ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			attrs.osmID = osm.WayID(id)
		}
	}

	attrs.tags = make(map[string]string, len(edge.Tags)+1)
	if attrs.hasHighway {
		attrs.tags[TAG_HIGHWAY] = attrs.highway
	}
	for k, v := range edge.Tags {
		attrs.tags[k] = v
	}
	return attrs
}

// lengthMeters returns supplied length if it is usable
func (edge *RawEdge) lengthMeters() (float64, bool) {
	if math.IsNaN(edge.Length) || math.IsInf(edge.Length, 0) || edge.Length <= 0 {
		return 0, false
	}
	return edge.Length, true
}

// AssignNodeIDs numbers nodes sequentially (starting from 0) in order of first appearance
// among all `U` values followed by all `V` values. Returns number of distinct nodes
func AssignNodeIDs(edges []RawEdge) int {
	ids := make(map[osm.NodeID]int64, len(edges))
	next := int64(0)
	lookup := func(nodeID osm.NodeID) int64 {
		if id, ok := ids[nodeID]; ok {
			return id
		}
		ids[nodeID] = next
		next++
		return ids[nodeID]
	}
	for i := range edges {
		lookup(edges[i].U)
	}
	for i := range edges {
		lookup(edges[i].V)
	}
	for i := range edges {
		edges[i].SetNodeIDs(ids[edges[i].U], ids[edges[i].V])
	}
	return len(ids)
}

// hasAllNodeIDs checks whether every edge carries sequential node IDs already
func hasAllNodeIDs(edges []RawEdge) bool {
	for i := range edges {
		if !edges[i].HasNodeIDs {
			return false
		}
	}
	return true
}
