package dto

// MintRequest is the request body for issuing new units.
type MintRequest struct {
	Amount    string `json:"amount" binding:"required,max=32"`
	Recipient string `json:"recipient" binding:"required,handle"`
}

// TransferRequest is the request body for paying another wallet.
type TransferRequest struct {
	Amount    string `json:"amount" binding:"required,max=32"`
	Recipient string `json:"recipient" binding:"required,handle"`
}

// ChargeRequest is the request body for collecting from another wallet.
type ChargeRequest struct {
	Amount string `json:"amount" binding:"required,max=32"`
	Payer  string `json:"payer" binding:"required,handle"`
}

// WalletResponse is the response body for a wallet.
type WalletResponse struct {
	Owner     string `json:"owner"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MintResponse is the response body for a mint record.
type MintResponse struct {
	ID        string `json:"id"`
	Issuer    string `json:"issuer"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

// TransferResponse is the response body for a transfer record.
type TransferResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
}

// ListResponse wraps a list of records.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
