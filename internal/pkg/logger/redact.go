package logger

import "strings"

// Field name fragments whose values must never appear in logs.
var secretKeyFragments = []string{"password", "secret", "token", "api_key", "apikey", "dsn"}

// redactValue masks values for secret-bearing keys. Connection strings keep
// their scheme and host so failures stay diagnosable.
func redactValue(key, val string) string {
	lower := strings.ToLower(key)
	for _, frag := range secretKeyFragments {
		if strings.Contains(lower, frag) {
			return RedactDSN(val)
		}
	}
	return val
}

// RedactDSN masks the credential portion of a connection string, or the whole
// value when it has no URL shape.
// "postgres://user:pw@host/db" → "postgres://***@host/db"
func RedactDSN(val string) string {
	scheme := strings.Index(val, "://")
	at := strings.LastIndex(val, "@")
	if scheme >= 0 && at > scheme {
		return val[:scheme+3] + "***" + val[at:]
	}
	return "***"
}
