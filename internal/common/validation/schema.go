package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema defines the structure for input/output schemas
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Pattern     *string             `json:"pattern,omitempty"`
	MinLength   *int                `json:"minLength,omitempty"`
	MaxLength   *int                `json:"maxLength,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// errorCodes maps gojsonschema error types onto the codes callers match on.
var errorCodes = map[string]string{
	"required":                        "REQUIRED_FIELD_MISSING",
	"additional_property_not_allowed": "EXTRA_FIELD",
	"invalid_type":                    "INVALID_TYPE",
	"string_gte":                      "MIN_LENGTH_VIOLATION",
	"string_lte":                      "MAX_LENGTH_VIOLATION",
	"pattern":                         "PATTERN_MISMATCH",
	"enum":                            "INVALID_ENUM_VALUE",
	"number_gte":                      "MINIMUM_VIOLATION",
	"number_lte":                      "MAXIMUM_VIOLATION",
}

// Validator holds a compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles s once for repeated use.
func NewValidator(s JSONSchema) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// MustValidator is NewValidator for package-level schemas.
func MustValidator(s JSONSchema) *Validator {
	v, err := NewValidator(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateBytes validates a raw JSON document. A body that is not JSON at
// all is reported as a single INVALID_JSON error on the root.
func (v *Validator) ValidateBytes(data []byte) *ValidationResult {
	if !json.Valid(data) {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: "body is not valid JSON",
			Code:    "INVALID_JSON",
		}}}
	}
	return v.validate(gojsonschema.NewBytesLoader(data))
}

// ValidateObject validates an already decoded value such as job variables.
func (v *Validator) ValidateObject(input interface{}) *ValidationResult {
	return v.validate(gojsonschema.NewGoLoader(input))
}

func (v *Validator) validate(doc gojsonschema.JSONLoader) *ValidationResult {
	result, err := v.schema.Validate(doc)
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_JSON",
		}}}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, toValidationError(re))
	}
	return out
}

// ValidateInput validates input against JSON schema with detailed errors
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	v, err := NewValidator(schema)
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(schema)",
			Message: err.Error(),
			Code:    "INVALID_SCHEMA",
		}}}
	}
	return v.ValidateObject(input)
}

func toValidationError(re gojsonschema.ResultError) ValidationError {
	field := re.Field()
	// required and additionalProperties errors are raised on the parent
	if prop, ok := re.Details()["property"].(string); ok {
		if field == "(root)" {
			field = prop
		} else {
			field = field + "." + prop
		}
	}

	code, ok := errorCodes[re.Type()]
	if !ok {
		code = strings.ToUpper(re.Type())
	}
	return ValidationError{Field: field, Message: re.Description(), Code: code}
}

// ValidateActivityNaming validates activity ID follows naming convention
func ValidateActivityNaming(activityId string) error {
	namingPattern := regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)
	if !namingPattern.MatchString(activityId) {
		return fmt.Errorf("activity ID must follow format: domain.subdomain.action (e.g., medication.search.run)")
	}
	return nil
}

// GetSchemaFromJSON parses JSON schema from string
func GetSchemaFromJSON(schemaJSON string) (JSONSchema, error) {
	var schema JSONSchema
	err := json.Unmarshal([]byte(schemaJSON), &schema)
	return schema, err
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
