package progression

import (
	"math"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// XPForLevel returns the XP threshold of a level: floor(100 * L^1.5).
// The formula must not change: stored totals are interpreted with it.
func XPForLevel(level int) int {
	return int(math.Floor(100 * math.Pow(float64(level), 1.5)))
}

// MaxActionXP bounds the size of a single ledger action in either direction.
const MaxActionXP = 10_000

// CalculateLevel returns the level reached with xp: the highest L whose
// XPForLevel(L) <= xp. Any xp below XPForLevel(2) is level 1.
func CalculateLevel(xp int) int {
	if xp < XPForLevel(2) {
		return 1
	}
	// start from the inverse of the formula and correct float rounding
	level := max(int(math.Pow(float64(xp)/100, 2.0/3.0)), 2)
	for level > 2 && XPForLevel(level) > xp {
		level--
	}
	for XPForLevel(level+1) <= xp {
		level++
	}
	return level
}

// GetLevelProgress derives the progress view for a total XP amount.
func GetLevelProgress(xp int) domain.LevelProgress {
	level := CalculateLevel(xp)
	current := XPForLevel(level)
	next := XPForLevel(level + 1)

	progress := float64(xp-current) / float64(next-current) * 100
	progress = math.Max(0, math.Min(100, progress))

	return domain.LevelProgress{
		CurrentLevel:      level,
		CurrentXP:         xp,
		XPForCurrentLevel: current,
		XPForNextLevel:    next,
		Progress:          progress,
		XPToNextLevel:     max(0, next-xp),
	}
}

// AddXPResult is the outcome of applying one action to an XP total.
type AddXPResult struct {
	NewXP    int
	OldLevel int
	NewLevel int
	LevelUp  bool
	Unlocked []domain.Achievement

	// Clamped is set when a debit would have taken the total below zero.
	Clamped bool
}

// AddXP applies action to currentXP and evaluates the catalog rules
// against the result. Achievements already in unlocked never fire again.
// A nil catalog evaluates no rules.
func AddXP(currentXP int, action domain.XPAction, catalog *Catalog, unlocked map[domain.AchievementID]domain.Timestamp, streak int) AddXPResult {
	newXP := currentXP + action.XP
	clamped := false
	if newXP < 0 {
		newXP = 0
		clamped = true
	}

	oldLevel := CalculateLevel(currentXP)
	newLevel := CalculateLevel(newXP)

	res := AddXPResult{
		NewXP:    newXP,
		OldLevel: oldLevel,
		NewLevel: newLevel,
		LevelUp:  newLevel > oldLevel,
		Clamped:  clamped,
	}

	if catalog != nil {
		res.Unlocked = catalog.Evaluate(Facts{
			NewXP:      newXP,
			NewLevel:   newLevel,
			ActionType: action.Type,
			Streak:     streak,
			Unlocked:   unlocked,
		})
	}

	return res
}
