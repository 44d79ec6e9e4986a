package airquality

import "strings"

// placeholderCredentials are values shipped in example env files that must
// never be sent upstream.
var placeholderCredentials = map[string]bool{
	"your_key_here":    true,
	"your-key-here":    true,
	"your_api_key":     true,
	"<your-api-key>":   true,
	"changeme":         true,
	"replace_me":       true,
	"openaq_api_key":   true,
	"xxxxxxxxxxxxxxxx": true,
}

// IsPlaceholderCredential reports whether key is blank or a known placeholder.
func IsPlaceholderCredential(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	return k == "" || placeholderCredentials[k]
}

// ValidateCredential returns a *ConfigError when key cannot be used.
func ValidateCredential(key string) error {
	if strings.TrimSpace(key) == "" {
		return &ConfigError{Reason: "OpenAQ API key is not set; set OPENAQ_API_KEY (get a key at https://openaq.org/)"}
	}
	if IsPlaceholderCredential(key) {
		return &ConfigError{Reason: "OpenAQ API key is a placeholder value; set OPENAQ_API_KEY to a real key"}
	}
	return nil
}
