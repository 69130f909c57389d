package contextkeys

// Keys set on gin.Context by the auth middleware.
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)
