package gameio

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/park285/chess-arena/internal/chess"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("isotime", func(fl validator.FieldLevel) bool {
		_, ok := ParseISOTime(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("square", func(fl validator.FieldLevel) bool {
		_, err := chess.ParseSquare(fl.Field().String())
		return err == nil
	})
	return v
}

// ParseISOTime accepts RFC 3339 timestamps with or without fractional
// seconds, and bare calendar dates.
func ParseISOTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// schemaError flattens validator output into one SCHEMA_INVALID error.
func schemaError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(CodeSchemaInvalid, err, "invalid payload")
	}
	var details strings.Builder
	for _, fe := range verrs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch fe.Tag() {
		case "required":
			fmt.Fprintf(&details, "%s is required", fe.Namespace())
		case "nonblank":
			fmt.Fprintf(&details, "%s must be a non-empty SAN string", fe.Namespace())
		case "isotime":
			fmt.Fprintf(&details, "%s must be an ISO datetime", fe.Namespace())
		case "oneof":
			fmt.Fprintf(&details, "%s must be one of [%s]", fe.Namespace(), fe.Param())
		default:
			fmt.Fprintf(&details, "%s failed %s validation", fe.Namespace(), fe.Tag())
		}
	}
	return newError(CodeSchemaInvalid, nil, "%s", details.String())
}
