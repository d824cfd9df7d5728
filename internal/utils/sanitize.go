package utils

import (
	"net/url"
	"strings"
)

// urlSchemes lists connection string schemes that carry credentials in the
// userinfo part and can be redacted through net/url.
var urlSchemes = []string{
	"redis://",
	"rediss://",
	"mongodb://",
	"mongodb+srv://",
	"postgres://",
	"postgresql://",
	"mysql://",
}

// SanitizeConnectionString removes credentials from connection strings for safe logging
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	for _, scheme := range urlSchemes {
		if !strings.HasPrefix(connStr, scheme) {
			continue
		}

		parsedURL, err := url.Parse(connStr)
		if err != nil {
			// If parsing fails, just redact the whole thing after the scheme
			return strings.TrimSuffix(scheme, "://") + "://*****"
		}

		if parsedURL.User != nil {
			if _, hasPassword := parsedURL.User.Password(); hasPassword {
				parsedURL.User = url.UserPassword(parsedURL.User.Username(), "*****")
			}
		}
		return parsedURL.String()
	}

	// MySQL DSN (user:pass@tcp(host)/db) and other unknown formats:
	// redact anything between the last ':' and '@' of the user part
	if strings.Contains(connStr, "@") {
		parts := strings.Split(connStr, "@")
		userPart := parts[0]
		if colonIdx := strings.LastIndex(userPart, ":"); colonIdx != -1 {
			return userPart[:colonIdx+1] + "*****@" + strings.Join(parts[1:], "@")
		}
	}

	return connStr
}
