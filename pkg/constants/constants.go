package constants

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	IdempotencyHeader   = "Idempotency-Key"
)

var (
	DefaultServerURL  = "http://localhost:8000"
	KeyringService    = "raki"
	DefaultSQLiteFile = "raki.db"
)
