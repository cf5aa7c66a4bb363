package osm2pgr

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// PrepareWKTLinestring returns WKT representation of LineString. Empty line gives empty string
func PrepareWKTLinestring(line orb.LineString) string {
	if len(line) == 0 {
		return ""
	}
	return wkt.MarshalString(line)
}
