// Package apikeys reads provider API keys from the environment.
package apikeys

import (
	"errors"
	"fmt"
	"os"
)

const (
	GeminiEnv     = "GEMINI_API_KEY"
	OpenRouterEnv = "OPENROUTER_API_KEY"
)

var ErrEnvVarMissing = errors.New("environment variable not set")

// Lookup returns the value of the named variable. Unset and empty are both missing.
func Lookup(name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s not set in environment", ErrEnvVarMissing, name)
	}

	return value, nil
}

// Gemini returns the Gemini API key.
func Gemini() (string, error) {
	return Lookup(GeminiEnv)
}

// OpenRouter returns the OpenRouter API key.
func OpenRouter() (string, error) {
	return Lookup(OpenRouterEnv)
}
