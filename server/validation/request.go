// Package validation decodes and checks request bodies and measures prompt
// size before anything is sent upstream.
package validation

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	siftErrors "github.com/teilomillet/sift/errors"
)

// MaxBodyBytes bounds request bodies. Both endpoints take a few short fields.
const MaxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so details match what clients sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationErrorDetail describes one failed field constraint.
type ValidationErrorDetail struct {
	Field   string `json:"field"`           // The field that failed validation
	Message string `json:"message"`         // Human-readable error message
	Code    string `json:"code"`            // Machine-readable error code
	Value   string `json:"value,omitempty"` // The invalid value
}

// DecodeJSON reads r's body into dst. dst should already hold any defaults;
// fields absent from the body keep them. An empty body is an error.
func DecodeJSON(r *http.Request, dst interface{}) *siftErrors.SiftError {
	if r.Body == nil {
		return invalidBody(io.EOF)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return invalidBody(err)
	}
	return nil
}

func invalidBody(err error) *siftErrors.SiftError {
	msg := err.Error()
	if err == io.EOF {
		msg = "request body is empty"
	}
	return siftErrors.NewInvalidRequestError("", "Invalid request body", map[string]interface{}{
		"errors": []ValidationErrorDetail{{
			Field:   "body",
			Message: msg,
			Code:    "invalid_json",
		}},
	})
}

// Struct checks v's validate tags.
func Struct(v interface{}) *siftErrors.SiftError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return siftErrors.NewInternalError("", err)
	}

	details := make([]ValidationErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ValidationErrorDetail{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Code:    fmt.Sprintf("%s_validation_failed", fe.Tag()),
			Value:   fmt.Sprintf("%v", fe.Value()),
		})
	}
	return siftErrors.NewInvalidRequestError("", "Request validation failed", map[string]interface{}{
		"errors": details,
	})
}

// DecodeAndValidate is DecodeJSON followed by Struct.
func DecodeAndValidate(r *http.Request, dst interface{}) *siftErrors.SiftError {
	if err := DecodeJSON(r, dst); err != nil {
		return err
	}
	return Struct(dst)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
