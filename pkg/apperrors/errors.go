package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrMissingCredential = errors.New("missing credential")
	ErrSourceUnreadable  = errors.New("source file unreadable")
	ErrAssetMissing      = errors.New("asset file missing")
	ErrCategoryMissing   = errors.New("category missing in remote store")
)
