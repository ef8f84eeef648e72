package config

import (
	"errors"
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: fmt.Sprintf("%s is required", APIKeyEnv),
		})
	}

	if !isHTTPURL(c.LLM.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid model endpoint URL",
		})
	}

	if c.LLM.TextModel == "" || c.LLM.VisionModel == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.models",
			Message: "text_model and vision_model are required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 32768 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 32768",
		})
	}

	if c.Temperature() < 0 || c.Temperature() > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout",
			Message: "timeout must not be negative",
		})
	}

	// Validate Search config
	if c.SearchEnabled() {
		if !isHTTPURL(c.Search.Endpoint) {
			errors = append(errors, ValidationError{
				Field:   "search.endpoint",
				Message: "invalid search endpoint URL",
			})
		}

		if c.Search.MaxResults < 1 {
			errors = append(errors, ValidationError{
				Field:   "search.max_results",
				Message: "max_results must be positive",
			})
		}

		if c.Search.RateLimit <= 0 {
			errors = append(errors, ValidationError{
				Field:   "search.rate_limit",
				Message: "rate_limit must be positive",
			})
		}
	}

	return errors
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Check reports a missing credential first, then every validation error.
func (c *Config) Check() error {
	if c.LLM.APIKey == "" {
		return ErrMissingCredential
	}
	var errs []error
	for _, e := range c.Validate() {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}
