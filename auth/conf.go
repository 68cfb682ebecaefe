package auth

// Conf holds the credentials for the tariff API. Public rate feeds work
// without a key.
type Conf struct {
	APIKey string `json:"api_key"`
}
