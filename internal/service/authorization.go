package service

import (
	"fmt"

	"chat-ledger/internal/core/domain"
	"chat-ledger/pkg/apperror"
)

// StaffPolicy implements ports.AuthorizationPolicy over a fixed staff set.
// The set is built once and never mutated, so it is safe for concurrent use.
type StaffPolicy struct {
	staff map[domain.Identity]struct{}
}

// NewStaffPolicy normalizes every configured handle. An invalid handle is a
// configuration error.
func NewStaffPolicy(handles []string) (*StaffPolicy, error) {
	staff := make(map[domain.Identity]struct{}, len(handles))
	for _, h := range handles {
		id, err := domain.ParseIdentity(h)
		if err != nil {
			return nil, fmt.Errorf("staff handle: %w", err)
		}
		staff[id] = struct{}{}
	}
	return &StaffPolicy{staff: staff}, nil
}

// IsStaff reports whether id belongs to the staff set.
func (p *StaffPolicy) IsStaff(id domain.Identity) bool {
	_, ok := p.staff[id]
	return ok
}

// Authorize allows unprivileged operations for everyone and privileged ones for staff only.
func (p *StaffPolicy) Authorize(op domain.Operation, actor domain.Identity) error {
	if op.Privileged() && !p.IsStaff(actor) {
		return apperror.ErrUnauthorized(string(op))
	}
	return nil
}
