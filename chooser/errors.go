/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package chooser

import "errors"

var (
	// ErrCapExceeded is returned when a touch would exceed MaxConcurrentTouches.
	// Every contact has been cleared by the time it is returned.
	ErrCapExceeded = errors.New("too many concurrent touches")

	// ErrLockoutActive rejects touches until the over-cap gesture is released.
	ErrLockoutActive = errors.New("touches locked out")

	ErrNotFound           = errors.New("contact not found")
	ErrDuplicateContact   = errors.New("contact already registered")
	ErrSessionActive      = errors.New("configuration cannot change while touches are active")
	ErrInvalidWinnerCount = errors.New("winner count out of range")
	ErrInvalidMode        = errors.New("unknown mode")
)
