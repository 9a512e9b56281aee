package domain

// MessageEmotion is the primary emotion attached to a user message.
type MessageEmotion struct {
	Type      EmotionType `json:"type"`
	Intensity float64     `json:"intensity"`
}

// Message represents any message in a session timeline (user or assistant).
// Messages are append-only and never modified after being added.
type Message struct {
	ID        MessageID       `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Timestamp Timestamp       `json:"timestamp"`
	Emotion   *MessageEmotion `json:"emotion,omitempty"`
}

// EmotionSample is one point of the emotional trajectory of a session.
type EmotionSample struct {
	Timestamp Timestamp   `json:"timestamp"`
	Score     float64     `json:"score"`
	Magnitude float64     `json:"magnitude"`
	Primary   EmotionType `json:"primary"`
	Intensity float64     `json:"intensity"`
}

// Session is the state of one therapeutic conversation.
// CrisisDetected is sticky: once true it stays true for the session lifetime.
type Session struct {
	ID             SessionID       `json:"session_id"`
	UserID         UserID          `json:"user_id"`
	Messages       []Message       `json:"messages"`
	EmotionSamples []EmotionSample `json:"emotion_samples"`
	Topics         []string        `json:"topics"`
	TechniquesUsed []Technique     `json:"techniques_used"`
	CrisisDetected bool            `json:"crisis_detected"`
	StartTime      Timestamp       `json:"start_time"`
	UpdatedAt      Timestamp       `json:"updated_at"`
}

// Clone returns a deep copy safe to hand out of the session lock.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.EmotionSamples = append([]EmotionSample(nil), s.EmotionSamples...)
	out.Topics = append([]string(nil), s.Topics...)
	out.TechniquesUsed = append([]Technique(nil), s.TechniquesUsed...)
	return &out
}

// SessionNote is the aggregated clinical-style summary of a session.
type SessionNote struct {
	SessionID       SessionID   `json:"session_id"`
	UserID          UserID      `json:"user_id"`
	AverageScore    float64     `json:"average_score"`
	LastEmotion     EmotionType `json:"last_emotion,omitempty"`
	TechniquesUsed  []Technique `json:"techniques_used"`
	Topics          []string    `json:"topics"`
	CrisisDetected  bool        `json:"crisis_detected"`
	DurationMinutes int         `json:"duration_minutes"`
	MessageCount    int         `json:"message_count"`
	UserMessages    int         `json:"user_messages"`
	CreatedAt       Timestamp   `json:"created_at"`
}
