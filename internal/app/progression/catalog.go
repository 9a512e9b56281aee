package progression

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type RuleKind string

const (
	RuleAction RuleKind = "action" // fires on an action of ActionType (any user action when empty)
	RuleXP     RuleKind = "xp"     // fires when the new total reaches Threshold
	RuleLevel  RuleKind = "level"  // fires when the new level reaches Threshold
	RuleStreak RuleKind = "streak" // fires when the current streak reaches Threshold
)

type Rule struct {
	Kind       RuleKind          `yaml:"kind"`
	ActionType domain.ActionType `yaml:"action_type,omitempty"`
	Threshold  int               `yaml:"threshold,omitempty"`
}

type AchievementDef struct {
	ID          domain.AchievementID `yaml:"id"`
	Title       string               `yaml:"title"`
	Description string               `yaml:"description"`
	XPReward    int                  `yaml:"xp_reward"`
	Rule        Rule                 `yaml:"rule"`
}

// Catalog is the read-only set of achievement definitions and activity
// rewards. Per-user unlock state lives in domain.UserProgress.
type Catalog struct {
	Activities   map[domain.ActionType]int `yaml:"activities"`
	Achievements []AchievementDef          `yaml:"achievements"`
}

// Facts are the inputs achievement rules are evaluated against.
type Facts struct {
	NewXP      int
	NewLevel   int
	ActionType domain.ActionType
	Streak     int
	Unlocked   map[domain.AchievementID]domain.Timestamp
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With(fmt.Sprintf("reading catalog %s", path)))
	}
	return ParseCatalog(b)
}

func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fault.Wrap(err, ftag.With(ftag.InvalidArgument), fmsg.With("decoding catalog"))
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func invalidCatalog(format string, args ...any) error {
	return fault.New(fmt.Sprintf("catalog: "+format, args...), ftag.With(ftag.InvalidArgument))
}

func (c *Catalog) validate() error {
	seen := make(map[domain.AchievementID]struct{}, len(c.Achievements))
	for _, a := range c.Achievements {
		if a.ID == "" {
			return invalidCatalog("achievement without id")
		}
		if _, dup := seen[a.ID]; dup {
			return invalidCatalog("duplicate achievement %q", a.ID)
		}
		seen[a.ID] = struct{}{}

		if a.XPReward < 0 || a.XPReward > MaxActionXP {
			return invalidCatalog("achievement %q reward must be within 0..%d", a.ID, MaxActionXP)
		}
		switch a.Rule.Kind {
		case RuleAction, RuleXP, RuleLevel, RuleStreak:
		default:
			return invalidCatalog("achievement %q has unknown rule kind %q", a.ID, a.Rule.Kind)
		}
	}
	for t, xp := range c.Activities {
		if xp < 0 || xp > MaxActivityXP {
			return invalidCatalog("activity %q xp must be within 0..%d", t, MaxActivityXP)
		}
	}
	return nil
}

// BaseXP returns the base reward for an activity type.
func (c *Catalog) BaseXP(t domain.ActionType) (int, bool) {
	xp, ok := c.Activities[t]
	return xp, ok
}

// Evaluate returns the achievements whose rule holds for f and that are
// not in f.Unlocked, in catalog order.
func (c *Catalog) Evaluate(f Facts) []domain.Achievement {
	var out []domain.Achievement
	for _, def := range c.Achievements {
		if _, done := f.Unlocked[def.ID]; done {
			continue
		}
		if def.Rule.holds(f) {
			out = append(out, def.achievement())
		}
	}
	return out
}

// Lookup returns the definition with the given id.
func (c *Catalog) Lookup(id domain.AchievementID) (AchievementDef, bool) {
	for _, def := range c.Achievements {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDef{}, false
}

func (r Rule) holds(f Facts) bool {
	switch r.Kind {
	case RuleAction:
		if r.ActionType == "" {
			return isUserAction(f.ActionType)
		}
		return f.ActionType == r.ActionType
	case RuleXP:
		return f.NewXP >= r.Threshold
	case RuleLevel:
		return f.NewLevel >= r.Threshold
	case RuleStreak:
		return f.Streak >= r.Threshold
	}
	return false
}

// isUserAction excludes ledger bookkeeping entries.
func isUserAction(t domain.ActionType) bool {
	return t != "" && t != domain.ActionAchievementReward && t != domain.ActionRedemption
}

func (d AchievementDef) achievement() domain.Achievement {
	return domain.Achievement{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		XPReward:    d.XPReward,
	}
}
