package osm2pgr

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// EdgeRecord is routable edge: classified, costed and ready for serialization
type EdgeRecord struct {
	OSMID osm.WayID
	// Empty name is written as NULL
	Name        string
	SourceOSMID osm.NodeID
	TargetOSMID osm.NodeID
	Clazz       int
	Flags       FlagSet
	FlagsMask   int
	Source      int64
	Target      int64
	LengthKM    float64
	SpeedKMH    int
	Cost        float64
	ReverseCost float64
	Oneway      bool
	Reversed    bool
	Geometry    orb.LineString
}

// String returns pretty printed value for EdgeRecord
func (rec EdgeRecord) String() string {
	return fmt.Sprintf("Way: %d | Clazz: %d | Flags: %s (%d) | %d -> %d | km: %f | kmh: %d | cost: %f | reverse_cost: %f",
		rec.OSMID, rec.Clazz, rec.Flags, rec.FlagsMask, rec.Source, rec.Target, rec.LengthKM, rec.SpeedKMH, rec.Cost, rec.ReverseCost,
	)
}
