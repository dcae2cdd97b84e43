package domain

import "github.com/cwrk-planet/coderjam/pkg/errs"

var (
	ErrInvalidPadID    = errs.New(errs.ErrInvalidInput, "invalid pad id format")
	ErrInvalidLanguage = errs.New(errs.ErrInvalidInput, "unsupported language")
	ErrInvalidOutput   = errs.New(errs.ErrInvalidInput, "invalid output entry")
	ErrInvalidName     = errs.New(errs.ErrInvalidInput, "invalid user name")
	ErrBadKey          = errs.New(errs.ErrUnauthorized, "bad key")
	ErrPadNotFound     = errs.New(errs.ErrNotFound, "pad not found")
	ErrNotAMember      = errs.New(errs.ErrNotAMember, "connection has not joined the pad")
	ErrPadExists       = errs.New(errs.ErrInvalidInput, "pad already exists")
	ErrPersistFailed   = errs.New(errs.ErrPersistence, "failed to save pad")
)
