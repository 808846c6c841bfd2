package constants

// Handler constants
const (
	// DefaultHistoryLimit is the maximum number of attendance dates listed per section
	DefaultHistoryLimit = 365

	// SessionCookieName is the cookie carrying the signed session ID
	SessionCookieName = "classroll_session"

	// SessionMaxAgeHours is how long a teacher session remains valid
	SessionMaxAgeHours = 24
)
