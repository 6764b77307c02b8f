package game

import "errors"

var (
	ErrParse        = errors.New("parse error")
	ErrNotFound     = errors.New("not found")
	ErrExists       = errors.New("already exists")
	ErrInvalidState = errors.New("invalid state")
	ErrFileAccess   = errors.New("file access error")
	ErrInvalidSpawn = errors.New("invalid spawn target")
)
