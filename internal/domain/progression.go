package domain

import "time"

// ActionType names a kind of completed user action that earns (or spends) XP.
type ActionType string

const (
	ActionChatSession       ActionType = "chat_session"
	ActionMoodCheckIn       ActionType = "mood_check_in"
	ActionBreathing         ActionType = "breathing_exercise"
	ActionJournalEntry      ActionType = "journal_entry"
	ActionMeditation        ActionType = "meditation"
	ActionCBTExercise       ActionType = "cbt_exercise"
	ActionDailyGoal         ActionType = "daily_goal"
	ActionAchievementReward ActionType = "achievement_reward"
	ActionRedemption        ActionType = "redemption"
)

// XPAction is an immutable ledger entry. ID is unique per logical action.
type XPAction struct {
	ID          ActionID          `json:"id"`
	Type        ActionType        `json:"type"`
	XP          int               `json:"xp"`
	Description string            `json:"description"`
	Timestamp   Timestamp         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// LevelProgress is a pure derived view of a total XP amount.
type LevelProgress struct {
	CurrentLevel      int     `json:"current_level"`
	CurrentXP         int     `json:"current_xp"`
	XPForCurrentLevel int     `json:"xp_for_current_level"`
	XPForNextLevel    int     `json:"xp_for_next_level"`
	Progress          float64 `json:"progress"`
	XPToNextLevel     int     `json:"xp_to_next_level"`
}

// Achievement is a catalog entry. UnlockedAt is only set on per-user views.
type Achievement struct {
	ID          AchievementID `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	XPReward    int           `json:"xp_reward"`
	UnlockedAt  *Timestamp    `json:"unlocked_at,omitempty"`
}

// UserProgress is the per-user ledger state.
// Unlocked only ever grows: entries are never removed.
type UserProgress struct {
	UserID   UserID                      `json:"user_id"`
	TotalXP  int                         `json:"total_xp"`
	Actions  []XPAction                  `json:"actions"`
	Unlocked map[AchievementID]Timestamp `json:"unlocked"`
}

// NewUserProgress returns an empty ledger for a user.
func NewUserProgress(userID UserID) *UserProgress {
	return &UserProgress{
		UserID:   userID,
		Unlocked: make(map[AchievementID]Timestamp),
	}
}

// HasAction reports whether an action with the given id was already recorded.
func (p *UserProgress) HasAction(id ActionID) bool {
	for _, a := range p.Actions {
		if a.ID == id {
			return true
		}
	}
	return false
}

// StreakRecord is the per-user daily streak state.
type StreakRecord struct {
	UserID           UserID    `json:"user_id"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	LastActivityDate time.Time `json:"last_activity_date"`
	Multiplier       float64   `json:"multiplier"`
}
