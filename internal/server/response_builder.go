// internal/server/response_builder.go
package server

import (
	"encoding/json"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anmicius0/euvat-checker/internal/config"
)

// ResponseBuilder provides utilities for constructing consistent API responses.
type ResponseBuilder struct{}

// newResponseBuilder creates a new response builder instance.
func newResponseBuilder() *ResponseBuilder { return &ResponseBuilder{} }

// AcceptedResponse is the payload returned for accepted batch requests.
type AcceptedResponse struct {
	Success    bool
	Message    string
	JobID      string
	Status     string
	Validation ValidationSummary
}

// ErrorResponse standardizes error responses.
type ErrorResponse struct {
	Success bool
	Error   string
	Message string
	Details any
}

// BuildJobResponse constructs the job status response, converting keys to camelCase.
func (rb *ResponseBuilder) BuildJobResponse(job *config.Job) any {
	return toCamelCaseMap(job)
}

// BuildAcceptedResponse constructs an AcceptedResponse with the pre-flight summary, converting keys to camelCase.
func (rb *ResponseBuilder) BuildAcceptedResponse(jobID string, summary ValidationSummary) any {
	response := AcceptedResponse{
		Success:    true,
		Message:    MessageJobQueued,
		JobID:      jobID,
		Status:     StatusPending,
		Validation: summary,
	}
	return toCamelCaseMap(response)
}

// BuildErrorResponse constructs a standardized error response, converting keys to camelCase.
func (rb *ResponseBuilder) BuildErrorResponse(errorCode, errorMessage string, details any) any {
	response := ErrorResponse{
		Success: false,
		Error:   errorCode,
		Message: errorMessage,
		Details: details,
	}
	return toCamelCaseMap(response)
}

var jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

func toCamelCaseMap(data any) any {
	if data == nil {
		return nil
	}
	val := reflect.ValueOf(data)

	// Handle Pointers
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	// Types with their own JSON form (time.Time) are left to encoding/json
	if val.Type().Implements(jsonMarshalerType) {
		return val.Interface()
	}

	// Handle Slices/Arrays
	if val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		if val.Kind() == reflect.Slice && val.IsNil() {
			return []any{}
		}
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			out[i] = toCamelCaseMap(val.Index(i).Interface())
		}
		return out
	}

	// Handle Structs
	if val.Kind() == reflect.Struct {
		out := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			// Skip unexported fields
			if field.PkgPath != "" {
				continue
			}

			fieldVal := toCamelCaseMap(val.Field(i).Interface())
			out[camelKey(field.Name)] = fieldVal
		}
		return out
	}

	// Return primitives as-is
	return data
}

// camelKey maps Go field names to API keys: "JobID" -> "jobId", "ViesURL" -> "viesUrl",
// "VATNumbers" -> "vatNumbers".
func camelKey(key string) string {
	switch {
	case key == "ID":
		return "id"
	case strings.HasSuffix(key, "ID"):
		return lowerFirst(key[:len(key)-2]) + "Id"
	case key == "URL":
		return "url"
	case strings.HasSuffix(key, "URL"):
		return lowerFirst(key[:len(key)-3]) + "Url"
	default:
		return lowerFirst(key)
	}
}

// lowerFirst lowers a leading rune, or a whole leading acronym such as "VAT".
func lowerFirst(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n <= 1:
		r, size := utf8.DecodeRuneInString(s)
		return string(unicode.ToLower(r)) + s[size:]
	case n < len(runes):
		// keep the last capital as the start of the next word
		n--
	}
	return strings.ToLower(string(runes[:n])) + string(runes[n:])
}
