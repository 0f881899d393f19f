package repository

import "errors"

var (
	ErrUserNotFound              = errors.New("user not found")
	ErrDuplicateEmail            = errors.New("email already exists")
	ErrOrganisationNotFound      = errors.New("organisation not found")
	ErrDuplicateOrganisationName = errors.New("organisation name already exists")
	ErrAlreadyMember             = errors.New("user is already a member")
)
