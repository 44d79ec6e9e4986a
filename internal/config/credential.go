package config

import (
	"os"
	"strings"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
)

// DefaultSecretFile is where container deployments mount the API key.
const DefaultSecretFile = "/run/secrets/openaq_api_key"

// CredentialSource is one place an API key may come from.
type CredentialSource struct {
	Name   string
	Lookup func() (string, bool)
}

// FileSource reads the key from a file, ignoring surrounding whitespace.
func FileSource(path string) CredentialSource {
	return CredentialSource{
		Name: "file " + path,
		Lookup: func() (string, bool) {
			if path == "" {
				return "", false
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return "", false
			}
			return strings.TrimSpace(string(data)), true
		},
	}
}

// EnvSource reads the key from an environment variable.
func EnvSource(name string) CredentialSource {
	return CredentialSource{
		Name: "env " + name,
		Lookup: func() (string, bool) {
			v, ok := os.LookupEnv(name)
			return strings.TrimSpace(v), ok
		},
	}
}

// DefaultCredentialSources returns the deployment secret file followed by
// the OPENAQ_API_KEY environment variable.
func DefaultCredentialSources() []CredentialSource {
	return []CredentialSource{
		FileSource(getenvDefault("OPENAQ_API_KEY_FILE", DefaultSecretFile)),
		EnvSource("OPENAQ_API_KEY"),
	}
}

// ResolveAPIKey returns the first usable key. Blank and placeholder values
// are skipped. When no source yields a usable key it returns a
// *airquality.ConfigError.
func ResolveAPIKey(sources ...CredentialSource) (string, error) {
	var placeholderIn string
	for _, src := range sources {
		v, ok := src.Lookup()
		if !ok || v == "" {
			continue
		}
		if airquality.IsPlaceholderCredential(v) {
			if placeholderIn == "" {
				placeholderIn = src.Name
			}
			continue
		}
		return v, nil
	}

	if placeholderIn != "" {
		return "", &airquality.ConfigError{
			Reason: "OpenAQ API key from " + placeholderIn + " is a placeholder; set OPENAQ_API_KEY to a real key (get one at https://openaq.org/)",
		}
	}
	return "", &airquality.ConfigError{
		Reason: "OpenAQ API key is not set; set OPENAQ_API_KEY in the environment or .env file (get one at https://openaq.org/)",
	}
}
