package osm2pgr

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

// WayRule is the routing description for single `highway` value
type WayRule struct {
	Clazz    int      `yaml:"clazz"`
	MaxSpeed int      `yaml:"maxspeed"` // km/h, 0 means "use penalty cost"
	Flags    []string `yaml:"flags"`
}

// RuleTable Resolves OSM way tags to (clazz, maxspeed, flags).
// It is read-only after construction and safe for concurrent use
type RuleTable struct {
	rules      map[string]wayRuleResolved
	mask       AllowMask
	vocabulary FlagVocabulary
}

type wayRuleResolved struct {
	clazz    int
	maxSpeed int
	flags    FlagSet
}

// ruleTableDocument is YAML layout of the rule table file. Other top-level keys are ignored
type ruleTableDocument struct {
	WayTagResolver *struct {
		Tags      map[string]WayRule `yaml:"tags"`
		FinalMask string             `yaml:"final_mask"`
		FlagList  []string           `yaml:"flag_list"`
	} `yaml:"way_tag_resolver"`
}

// NewRuleTable creates rule table. Given values are copied.
// Empty vocabulary falls back to default one: car, bike, foot.
// Flags beyond MAX_FLAGS positions are never packed
func NewRuleTable(rules map[string]WayRule, finalMask string, vocabulary []string) *RuleTable {
	rt := &RuleTable{
		rules: make(map[string]wayRuleResolved, len(rules)),
		mask:  ParseAllowMask(finalMask),
	}
	for highway, rule := range rules {
		rt.rules[highway] = wayRuleResolved{
			clazz:    rule.Clazz,
			maxSpeed: rule.MaxSpeed,
			flags:    NewFlagSet(rule.Flags...),
		}
	}
	if len(vocabulary) == 0 {
		vocabulary = defaultFlagVocabulary
	}
	rt.vocabulary = make(FlagVocabulary, len(vocabulary))
	copy(rt.vocabulary, vocabulary)
	return rt
}

// DefaultRuleTable returns minimal built-in rule table: motorways only, no mask
func DefaultRuleTable() *RuleTable {
	return NewRuleTable(map[string]WayRule{
		"motorway": {Clazz: 11, MaxSpeed: 120, Flags: []string{"car"}},
	}, "", nil)
}

// ParseRuleTable parses YAML document. Missing `way_tag_resolver` section gives default rule table
func ParseRuleTable(data []byte) (*RuleTable, error) {
	doc := ruleTableDocument{}
	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse rule table")
	}
	if doc.WayTagResolver == nil {
		return DefaultRuleTable(), nil
	}
	section := doc.WayTagResolver
	if len(section.FlagList) > MAX_FLAGS {
		return nil, errors.Errorf("Can't parse rule table: flag_list has %d flags, but at most %d fit into flags column", len(section.FlagList), MAX_FLAGS)
	}
	return NewRuleTable(section.Tags, section.FinalMask, section.FlagList), nil
}

// LoadRuleTable reads rule table from YAML file.
// Missing file is not an error: default rule table is returned and warning is logged
func LoadRuleTable(fileName string, logger *slog.Logger) (*RuleTable, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("Configuration file not found. Using default values", "file", fileName)
			return DefaultRuleTable(), nil
		}
		return nil, errors.Wrap(err, "Can't read rule table file")
	}
	rt, err := ParseRuleTable(data)
	if err != nil {
		return nil, errors.Wrapf(err, "File '%s'", fileName)
	}
	return rt, nil
}

// Resolve returns clazz, maxspeed and flags for given tags.
// Unknown or missing `highway` gives (0, 0, empty set). Returned set is a copy
func (rt *RuleTable) Resolve(tags map[string]string) (int, int, FlagSet) {
	highway, ok := tags[TAG_HIGHWAY]
	if !ok || highway == "" {
		return 0, 0, FlagSet{}
	}
	rule, ok := rt.rules[highway]
	if !ok {
		return 0, 0, FlagSet{}
	}
	return rule.clazz, rule.maxSpeed, rule.flags.Clone()
}

// Passes checks resolved flags against final mask
func (rt *RuleTable) Passes(flags FlagSet) bool {
	return rt.mask.Passes(flags)
}

// Pack converts flags to bitmask according to the vocabulary
func (rt *RuleTable) Pack(flags FlagSet) int {
	return rt.vocabulary.Pack(flags)
}

// Vocabulary returns copy of flag vocabulary
func (rt *RuleTable) Vocabulary() FlagVocabulary {
	cp := make(FlagVocabulary, len(rt.vocabulary))
	copy(cp, rt.vocabulary)
	return cp
}

// Mask returns copy of final mask (nil if not set)
func (rt *RuleTable) Mask() AllowMask {
	if rt.mask == nil {
		return nil
	}
	return AllowMask(FlagSet(rt.mask).Clone())
}

// Len returns number of `highway` rules
func (rt *RuleTable) Len() int {
	return len(rt.rules)
}

// String returns pretty printed value for RuleTable
func (rt *RuleTable) String() string {
	return fmt.Sprintf(`
Rule table:
	rules: %d
	final_mask: '%s'
	flag_list: %v
	`,
		len(rt.rules),
		rt.mask,
		[]string(rt.vocabulary),
	)
}
