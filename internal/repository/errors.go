package repository

import "errors"

var (
	// ErrStaleVersion means a conditional update missed because the row's
	// version no longer matched the one the caller loaded.
	ErrStaleVersion = errors.New("stale version")

	// ErrContractChanged means finalize-time re-validation found the parent
	// contract concurrently cancelled, completed, or reassigned.
	ErrContractChanged = errors.New("contract changed since negotiation was loaded")
)
