package domain

import "errors"

// Storage-level failures shared by every WalletStore backend.
var (
	// ErrNegativeBalance is returned when a delta would drive a balance below zero.
	ErrNegativeBalance = errors.New("balance would become negative")
	// ErrLockTimeout is returned when a wallet lock could not be acquired in time.
	ErrLockTimeout = errors.New("wallet lock wait timed out")
	// ErrConflict marks a transient concurrency failure that is safe to retry.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrWalletNotLocked is returned when a wallet is mutated without being acquired first.
	ErrWalletNotLocked = errors.New("wallet not acquired in this transaction")
	// ErrDuplicateCommand is returned when a command key was already executed.
	ErrDuplicateCommand = errors.New("command already executed")
)
