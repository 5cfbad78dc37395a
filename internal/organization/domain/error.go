package domain

import "errors"

var (
	ErrNotFound           = errors.New("organization not found")
	ErrNotActive          = errors.New("organization not active")
	ErrNameTaken          = errors.New("organization name already exists")
	ErrAlreadyRegistered  = errors.New("identity already owns an organization")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrDepartmentExists   = errors.New("department name already exists")
	ErrDepartmentLimit    = errors.New("department limit reached")
	ErrForbidden          = errors.New("role not allowed")
	ErrInvalidName        = errors.New("invalid organization name")
	ErrSubdomainExhausted = errors.New("no free subdomain candidate")
)
