package service

import (
	"testing"

	"chat-ledger/internal/core/domain"
	"chat-ledger/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaffPolicy_NormalizesHandles(t *testing.T) {
	p, err := NewStaffPolicy([]string{"@Alice_Admin", "treasury"})
	require.NoError(t, err)

	assert.True(t, p.IsStaff("alice_admin"))
	assert.True(t, p.IsStaff("treasury"))
	assert.False(t, p.IsStaff("bobby"))
}

func TestNewStaffPolicy_InvalidHandle(t *testing.T) {
	_, err := NewStaffPolicy([]string{"alice_admin", "ab"})
	var invalid *domain.InvalidIdentityError
	assert.ErrorAs(t, err, &invalid)
}

func TestStaffPolicy_Authorize(t *testing.T) {
	p, err := NewStaffPolicy([]string{"alice_admin"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		op      domain.Operation
		actor   domain.Identity
		allowed bool
	}{
		{"staff mints", domain.OpMint, "alice_admin", true},
		{"user mints", domain.OpMint, "bobby", false},
		{"user lists wallets", domain.OpListWallets, "bobby", false},
		{"user lists mints", domain.OpListMints, "bobby", false},
		{"user lists all transfers", domain.OpListAllTransfers, "bobby", false},
		{"user looks up a wallet", domain.OpLookupWallet, "bobby", false},
		{"staff looks up a wallet", domain.OpLookupWallet, "alice_admin", true},
		{"user shows wallet", domain.OpShowWallet, "bobby", true},
		{"user transfers", domain.OpTransfer, "bobby", true},
		{"user charges", domain.OpCharge, "bobby", true},
		{"user lists own transfers", domain.OpListOwnTransfers, "bobby", true},
		{"staff transfers", domain.OpTransfer, "alice_admin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Authorize(tt.op, tt.actor)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
		})
	}
}

func TestStaffPolicy_EmptySet(t *testing.T) {
	p, err := NewStaffPolicy(nil)
	require.NoError(t, err)
	assert.Error(t, p.Authorize(domain.OpMint, "alice_admin"))
}
