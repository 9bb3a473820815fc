package activation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Code classifies a ValidationError for transports.
type Code string

const (
	CodeMissingParameter Code = "missing_parameter"
	CodeInvalidType      Code = "invalid_type"
	CodeTaskNotFound     Code = "task_not_found"
)

// Metadata keys attached to validation errors.
const (
	MetaProvidedValue = "provided-value"
	MetaProvidedType  = "provided-type"
	MetaTaskID        = "task-id"
	MetaTasksFile     = "tasks-file"
)

// ValidationError is a recoverable caller error. It is returned instead of
// a Result and never leaves state behind.
type ValidationError struct {
	Code     Code           `json:"code"`
	Message  string         `json:"error"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AsValidationError unwraps err to a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func missingParameter() *ValidationError {
	return &ValidationError{
		Code:    CodeMissingParameter,
		Message: "task-id parameter is required",
	}
}

func invalidType(raw any) *ValidationError {
	return &ValidationError{
		Code:    CodeInvalidType,
		Message: "task-id must be an integer",
		Metadata: map[string]any{
			MetaProvidedValue: raw,
			MetaProvidedType:  jsonTypeName(raw),
		},
	}
}

func taskNotFound(id int, location string) *ValidationError {
	return &ValidationError{
		Code:    CodeTaskNotFound,
		Message: fmt.Sprintf("No task found with id %d", id),
		Metadata: map[string]any{
			MetaTaskID:    id,
			MetaTasksFile: location,
		},
	}
}

// parseTaskID accepts JSON-decoded integers. Strings are rejected, including
// numeric ones; the CLI converts its argument before calling.
func parseTaskID(raw any) (int, *ValidationError) {
	switch v := raw.(type) {
	case nil:
		return 0, missingParameter()
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, missingParameter()
		}
		return 0, invalidType(raw)
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return fromInt64(v, raw)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, invalidType(raw)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, invalidType(raw)
		}
		return fromInt64(n, raw)
	default:
		return 0, invalidType(raw)
	}
}

// fromInt64 narrows v to int, rejecting values int cannot hold.
func fromInt64(v int64, raw any) (int, *ValidationError) {
	if v < math.MinInt || v > math.MaxInt {
		return 0, invalidType(raw)
	}
	return int(v), nil
}

// jsonTypeName names the JSON type of a decoded value.
func jsonTypeName(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := v.(json.Number); ok {
		return "number"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return reflect.TypeOf(v).String()
	}
}
