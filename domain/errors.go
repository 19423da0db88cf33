package domain

import "errors"

var (
	ErrEmptyName    = errors.New("name is empty")
	ErrEmptyColor   = errors.New("color is empty")
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomClosed   = errors.New("room is closed")
	ErrUnknownToken = errors.New("unknown token")
	ErrMissingToken = errors.New("missing token")
)
