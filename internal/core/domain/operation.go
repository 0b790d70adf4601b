package domain

// Operation names a ledger command for authorization and auditing.
type Operation string

const (
	OpShowWallet       Operation = "show_wallet"
	OpListWallets      Operation = "list_wallets"
	OpLookupWallet     Operation = "lookup_wallet"
	OpListMints        Operation = "list_mints"
	OpListAllTransfers Operation = "list_all_transfers"
	OpListOwnTransfers Operation = "list_own_transfers"
	OpMint             Operation = "mint"
	OpTransfer         Operation = "transfer"
	OpCharge           Operation = "charge"
)

// Privileged reports whether op is restricted to staff.
func (op Operation) Privileged() bool {
	switch op {
	case OpMint, OpListWallets, OpLookupWallet, OpListMints, OpListAllTransfers:
		return true
	}
	return false
}

// Mutating reports whether op changes balances.
func (op Operation) Mutating() bool {
	return op == OpMint || op == OpTransfer || op == OpCharge
}

// BuildCommandKey constructs the idempotency key of a chat command.
// Format: "op:caller:command_id".
func BuildCommandKey(op Operation, caller Identity, commandID string) string {
	return string(op) + ":" + string(caller) + ":" + commandID
}
