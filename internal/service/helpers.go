package service

import (
	"net/http"
	"strings"
	"time"
)

// httpClient is shared by the platform services. Platform APIs get an
// explicit bounded timeout instead of the zero-value default.
var httpClient = &http.Client{Timeout: 15 * time.Second}

func GetExpiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

// TruncateContent cuts text to a platform's character ceiling without
// splitting a multi-byte rune.
func TruncateContent(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.FieldsFunc(scope, func(r rune) bool {
		return r == ' ' || r == ','
	})
}
