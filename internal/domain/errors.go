package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not resolve.
	ErrRoomNotFound = errors.New("Room not found")
	// ErrInvalidToken is returned when the join token does not match the room's.
	ErrInvalidToken = errors.New("Invalid token")
	// ErrRoomFull is returned when a new controller joins a room at capacity.
	ErrRoomFull = errors.New("Room is full (max 3 players)")
	// ErrGameInProgress is returned when a new controller joins after game start.
	ErrGameInProgress = errors.New("Game already in progress")
	// ErrTeamNotFound indicates a score write against an unknown team.
	ErrTeamNotFound = errors.New("team not found")
	// ErrNoQuestions indicates the question source returned nothing usable.
	ErrNoQuestions = errors.New("no questions available")
)
