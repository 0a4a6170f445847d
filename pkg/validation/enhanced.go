// Package validation provides struct validation with go-playground/validator integration
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

var (
	// Validate is the main validator instance
	Validate *validator.Validate

	nodeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)
	handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]*$`)
)

func init() {
	Validate = validator.New()

	Validate.RegisterValidation("node_id", validateNodeID)
	Validate.RegisterValidation("node_type", validateNodeType)
	Validate.RegisterValidation("handle", validateHandle)

	// Use JSON tags for field names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateStruct validates a struct using its `validate` tags and, when the
// value implements Validator, its own rules.
func ValidateStruct(s interface{}) error {
	if err := Validate.Struct(s); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("cannot validate %T: %w", s, err)
		}
		return formatValidationErrors(err)
	}
	if v, ok := s.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// formatValidationErrors converts validator errors to our custom format
func formatValidationErrors(err error) ValidationErrors {
	var out ValidationErrors

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			out = append(out, ValidationError{
				Field:   fieldPath(fieldError),
				Value:   fieldError.Value(),
				Message: getErrorMessage(fieldError),
			})
		}
	}

	return out
}

// fieldPath drops the top-level struct name: "FlowDocument.nodes[0].id" -> "nodes[0].id"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// getErrorMessage returns a human-readable error message
func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "node_id":
		return "must be a valid node identifier (letters, digits, '_', '-', '.', ':')"
	case "node_type":
		return "must be a registered node type"
	case "handle":
		return "must be a valid handle name"
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

// validateNodeID validates node identifier format
func validateNodeID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return id != "" && len(id) <= 128 && nodeIDPattern.MatchString(id)
}

// validateNodeType accepts only node types present in the registry
func validateNodeType(fl validator.FieldLevel) bool {
	return flow.NodeType(fl.Field().String()).IsKnown()
}

// validateHandle accepts an empty handle (the node's default) or a simple name
func validateHandle(fl validator.FieldLevel) bool {
	h := fl.Field().String()
	return len(h) <= 64 && handlePattern.MatchString(h)
}

// MarshalValidationErrors marshals validation errors to JSON
func MarshalValidationErrors(errs ValidationErrors) ([]byte, error) {
	return json.Marshal(ErrorResponse{Errors: errs, Count: len(errs)})
}

// UnmarshalValidationErrors unmarshals validation errors from JSON
func UnmarshalValidationErrors(data []byte) (ValidationErrors, error) {
	var response ErrorResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, err
	}
	return response.Errors, nil
}

// ErrorResponse is the wire shape of a validation failure
type ErrorResponse struct {
	Errors ValidationErrors `json:"errors"`
	Count  int              `json:"count"`
}
