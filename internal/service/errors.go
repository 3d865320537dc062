package service

import "errors"

var (
	ErrTrackNotFound     = errors.New("track not found")
	ErrEmptyTrack        = errors.New("no points found")
	ErrImportTooLarge    = errors.New("import exceeds size limit")
	ErrInvalidTraceID    = errors.New("invalid trace id")
	ErrUpstream          = errors.New("upstream request failed")
	ErrNotRecording      = errors.New("no recording in progress")
	ErrAlreadyRecording  = errors.New("recording already in progress")
	ErrInvalidTransition = errors.New("invalid recording state transition")
)
