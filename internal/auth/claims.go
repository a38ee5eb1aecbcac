package auth

// AdminClaims identifies the caller of an admin API request
type AdminClaims struct {
	AdminID int64
	Source  string
}

const SourceAPIKey = "API_KEY"
