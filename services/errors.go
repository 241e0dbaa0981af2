package services

import "errors"

// Ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrSessionNotFound = errors.New("session not found")

	// Ошибки валидации и бизнес-правил
	ErrNameRequired        = errors.New("participant name is required")
	ErrNameTaken           = errors.New("participant name is already taken")
	ErrInvalidScore        = errors.New("qualification score must not be negative")
	ErrParticipantNotFound = errors.New("participant not found in the current qualification")
	ErrInvalidPhase        = errors.New("operation is not allowed in the current phase")

	// Аутентификация администратора
	ErrAuthInvalidKey = errors.New("invalid admin key")
)
