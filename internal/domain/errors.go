package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session already ended")
	ErrRecordNotFound  = errors.New("record not found")
	ErrDuplicateAction = errors.New("xp action already recorded")
)
