package osm2pgr

import (
	"sort"
	"strings"
)

// FlagSet is a set of travel mode names (e.g. "car", "bike", "foot")
type FlagSet map[string]struct{}

// NewFlagSet returns set built from given names
func NewFlagSet(names ...string) FlagSet {
	fs := make(FlagSet, len(names))
	for _, name := range names {
		fs[name] = struct{}{}
	}
	return fs
}

// Has checks if flag is in set
func (fs FlagSet) Has(name string) bool {
	_, ok := fs[name]
	return ok
}

// Intersects returns true if both sets share at least one flag
func (fs FlagSet) Intersects(other FlagSet) bool {
	small, big := fs, other
	if len(small) > len(big) {
		small, big = big, small
	}
	for name := range small {
		if _, ok := big[name]; ok {
			return true
		}
	}
	return false
}

// Clone returns independent copy of the set. Never returns nil
func (fs FlagSet) Clone() FlagSet {
	cp := make(FlagSet, len(fs))
	for name := range fs {
		cp[name] = struct{}{}
	}
	return cp
}

// Names returns sorted flag names
func (fs FlagSet) Names() []string {
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns pretty printed value for FlagSet
func (fs FlagSet) String() string {
	return "{" + strings.Join(fs.Names(), ",") + "}"
}

// FlagVocabulary is ordered list of known flags. Flag at position i is packed as 1<<i
type FlagVocabulary []string

// MAX_FLAGS is number of flags which fit into `flags integer` column
const MAX_FLAGS = 31

var (
	defaultFlagVocabulary = FlagVocabulary{"car", "bike", "foot"}
)

// Bits returns mapping from flag name to its bit. When name is listed twice the last position wins.
// Positions from MAX_FLAGS onwards get no bit
func (v FlagVocabulary) Bits() map[string]int {
	bits := make(map[string]int, len(v))
	for i, name := range v {
		if i >= MAX_FLAGS {
			break
		}
		bits[name] = 1 << i
	}
	return bits
}

// Pack converts set of flags into bitmask. Flags out of vocabulary are ignored
func (v FlagVocabulary) Pack(flags FlagSet) int {
	if len(flags) == 0 {
		return 0
	}
	bits := v.Bits()
	mask := 0
	for name := range flags {
		mask |= bits[name]
	}
	return mask
}

// Unpack returns flags which bits are set in given mask
func (v FlagVocabulary) Unpack(mask int) FlagSet {
	fs := make(FlagSet)
	for name, bit := range v.Bits() {
		if mask&bit != 0 {
			fs[name] = struct{}{}
		}
	}
	return fs
}

// AllowMask is the final filter for resolved flags. Nil mask lets everything through
type AllowMask FlagSet

// ParseAllowMask parses comma-separated list of flags (e.g. "car,bike").
// Blank names are dropped; an expression without names gives nil mask
func ParseAllowMask(expr string) AllowMask {
	var mask AllowMask
	for _, part := range strings.Split(expr, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if mask == nil {
			mask = make(AllowMask)
		}
		mask[name] = struct{}{}
	}
	return mask
}

// Passes checks if way with given flags is allowed by the mask
func (m AllowMask) Passes(flags FlagSet) bool {
	if m == nil {
		return true
	}
	if len(flags) == 0 {
		return false
	}
	return FlagSet(m).Intersects(flags)
}

// String returns comma-separated representation (the same format ParseAllowMask accepts)
func (m AllowMask) String() string {
	return strings.Join(FlagSet(m).Names(), ",")
}
