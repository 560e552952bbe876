package domain

// Merchant owns leasable assets and receives lease payments at
// WalletAddress. The API key secret is bcrypt-hashed at rest; only the
// key ID is stored in clear for lookup.
type Merchant struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	WalletAddress string `json:"wallet_address"`
	APIKeyID      string `json:"-"`
	APIKeyHash    string `json:"-"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
