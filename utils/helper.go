package utils

import (
	"github.com/go-playground/validator/v10"
)

// ProcessValidationErrors flattens binding errors into field => tag pairs
// for API responses.
func ProcessValidationErrors(err error) map[string]string {
	out := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		out["error"] = err.Error()
		return out
	}
	for _, fieldErr := range validationErrors {
		out[fieldErr.Field()] = fieldErr.Tag()
	}
	return out
}
