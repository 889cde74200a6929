package repo

import "errors"

var (
	ErrAlreadyAssigned  = errors.New("ticket already assigned to another user")
	ErrInviteNotPending = errors.New("invite is no longer pending")
	ErrDuplicateInvite  = errors.New("a pending invite already exists for this email")
)
