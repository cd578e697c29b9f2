package validation

import (
	"net/url"
	"regexp"
	"strings"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// Schemes whose URLs are only meaningful with a host component
var hostSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
	"ftp":   true,
}

// IsValidURL reports whether input, once trimmed, is an absolute URL with a scheme
func IsValidURL(input string) bool {
	rawURL := strings.TrimSpace(input)
	if rawURL == "" {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if !parsed.IsAbs() {
		return false
	}

	if hostSchemes[strings.ToLower(parsed.Scheme)] {
		return parsed.Host != ""
	}

	return parsed.Opaque != "" || parsed.Host != "" || parsed.Path != ""
}

// IsValidCode reports whether input is 6 to 8 ASCII letters or digits
func IsValidCode(input string) bool {
	return codePattern.MatchString(input)
}
