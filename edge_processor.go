package osm2pgr

import (
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb/planar"
	"golang.org/x/exp/slog"
)

const (
	// Cost multiplier (per kilometer) for ways without speed
	PENALTY_FACTOR = 10.0
	// Cost of moving against one-way direction
	BLOCKING_COST = 100000.0
)

// SkipReason tells why edge has not been turned into EdgeRecord.
// Edges with bad geometry are dropped later by SQLWriter and counted in SerializeStats.Skipped
type SkipReason uint16

const (
	SKIP_NONE = SkipReason(iota)
	SKIP_FINAL_MASK
	SKIP_UNCLASSIFIED
)

func (iotaIdx SkipReason) String() string {
	return [...]string{"none", "final_mask", "unclassified"}[iotaIdx]
}

// EdgeOutcome is result of processing single edge: either Record or Skip reason
type EdgeOutcome struct {
	Index  int
	Record EdgeRecord
	Skip   SkipReason
}

// Kept returns true if edge has been turned into record
func (outcome EdgeOutcome) Kept() bool {
	return outcome.Skip == SKIP_NONE
}

// ProcessStats contains counters for processed edges
type ProcessStats struct {
	Total   int
	Kept    int
	Skipped map[SkipReason]int
}

func newProcessStats() ProcessStats {
	return ProcessStats{
		Skipped: make(map[SkipReason]int),
	}
}

func (stats *ProcessStats) add(outcome EdgeOutcome) {
	stats.Total++
	if outcome.Kept() {
		stats.Kept++
		return
	}
	stats.Skipped[outcome.Skip]++
}

// EdgeProcessor turns raw edges into routable records using rule table
type EdgeProcessor struct {
	rules  *RuleTable
	logger *slog.Logger
}

// NewEdgeProcessor returns processor. Nil logger means slog.Default()
func NewEdgeProcessor(rules *RuleTable, logger *slog.Logger) *EdgeProcessor {
	if rules == nil {
		rules = DefaultRuleTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EdgeProcessor{
		rules:  rules,
		logger: logger,
	}
}

// Process converts edges into records. Order of records follows order of edges.
// Edges which do not pass the final mask or have clazz 0 are dropped
func (p *EdgeProcessor) Process(edges []RawEdge) ([]EdgeRecord, ProcessStats) {
	stats := newProcessStats()
	if len(edges) == 0 {
		p.logger.Info("No edges to process")
		return []EdgeRecord{}, stats
	}
	p.logger.Info("Processing edges: resolving tags, calculating costs, applying filters...", "edges", len(edges))
	st := time.Now()
	records := make([]EdgeRecord, 0, len(edges))
	for i := range edges {
		outcome := p.ProcessEdge(i, &edges[i])
		stats.add(outcome)
		if !outcome.Kept() {
			continue
		}
		records = append(records, outcome.Record)
	}
	if len(records) == 0 {
		p.logger.Info("No edges remained after processing", "edges", len(edges))
	} else {
		p.logger.Info("Processing complete", "kept", stats.Kept, "skipped_mask", stats.Skipped[SKIP_FINAL_MASK], "skipped_unclassified", stats.Skipped[SKIP_UNCLASSIFIED], "elapsed", time.Since(st))
	}
	return records, stats
}

// ProcessEdge handles single edge. Index is the edge position in provider's output
func (p *EdgeProcessor) ProcessEdge(index int, edge *RawEdge) EdgeOutcome {
	outcome := EdgeOutcome{Index: index}
	attrs := edge.normalize(index)

	clazz, maxSpeed, flags := p.rules.Resolve(attrs.tags)
	if !p.rules.Passes(flags) {
		p.logger.Debug("Skipping way due to final mask", "way", attrs.osmID, "flags", flags.String())
		outcome.Skip = SKIP_FINAL_MASK
		return outcome
	}
	if clazz == 0 {
		p.logger.Debug("Skipping way due to clazz 0", "way", attrs.osmID, "highway", attrs.highway)
		outcome.Skip = SKIP_UNCLASSIFIED
		return outcome
	}

	km := edgeLengthMeters(edge) / 1000.0
	cost := travelCost(km, maxSpeed)
	oneway, reversed := parseOneway(attrs.oneway)
	forward, backward := directedCosts(cost, oneway, reversed)

	source, target := int64(-1), int64(-1)
	if edge.HasNodeIDs {
		source, target = edge.Source, edge.Target
	}

	outcome.Record = EdgeRecord{
		OSMID:       attrs.osmID,
		Name:        displayName(attrs.name, attrs.ref),
		SourceOSMID: edge.U,
		TargetOSMID: edge.V,
		Clazz:       clazz,
		Flags:       flags,
		FlagsMask:   p.rules.Pack(flags),
		Source:      source,
		Target:      target,
		LengthKM:    km,
		SpeedKMH:    maxSpeed,
		Cost:        forward,
		ReverseCost: backward,
		Oneway:      oneway,
		Reversed:    reversed,
		Geometry:    edge.Geometry,
	}
	return outcome
}

// edgeLengthMeters prefers supplied length, then planar length of geometry (in its native units), then 0
func edgeLengthMeters(edge *RawEdge) float64 {
	if length, ok := edge.lengthMeters(); ok {
		return length
	}
	if len(edge.Geometry) < 2 {
		return 0
	}
	length := planar.Length(edge.Geometry)
	if math.IsNaN(length) || math.IsInf(length, 0) || length < 0 {
		return 0
	}
	return length
}

// travelCost returns cost in hours when speed is known, otherwise penalized length
func travelCost(km float64, kmh int) float64 {
	if kmh > 0 {
		return km / float64(kmh)
	}
	return km * PENALTY_FACTOR
}

// parseOneway checks `oneway` value. Reversed means legal travel goes against geometry direction
func parseOneway(value string) (bool, bool) {
	if _, ok := onewayValues[strings.ToLower(value)]; !ok {
		return false, false
	}
	return true, value == onewayReversed
}

// directedCosts returns (cost, reverse_cost) along geometry direction.
// For reversed one-way the forward direction is the blocked one
func directedCosts(cost float64, oneway, reversed bool) (float64, float64) {
	switch {
	case !oneway:
		return cost, cost
	case reversed:
		return BLOCKING_COST, cost
	default:
		return cost, BLOCKING_COST
	}
}

// displayName returns name if it is not blank, otherwise ref (or empty string)
func displayName(name, ref string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	if strings.TrimSpace(ref) != "" {
		return ref
	}
	return ""
}
