package osm2pgr

const (
	TAG_HIGHWAY = "highway"
	TAG_ONEWAY  = "oneway"
	TAG_NAME    = "name"
	TAG_REF     = "ref"
	TAG_OSMID   = "osmid"
)

var (
	// Values (compared in lower case) which make way one-directional
	onewayValues = map[string]struct{}{
		"yes":  {},
		"true": {},
		"1":    {},
		"-1":   {},
	}
)

// See ref.: https://wiki.openstreetmap.org/wiki/Key:oneway
const onewayReversed = "-1"
