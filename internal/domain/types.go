package domain

import "time"

type SessionID string
type UserID string
type MessageID string
type ActionID string
type AchievementID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Timestamp = time.Time
