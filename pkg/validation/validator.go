package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON (or form/uri) tag names in errors.
// - Registers notblank and the aliases used by request DTOs.
func Init() {
	initOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Configure(v)
		}
	})
}

var initOnce sync.Once

// Configure applies the shared tag name function, validations and aliases to v.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form", "uri"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterAlias("username", "notblank,min=2,max=100")
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	if errors.Is(err, io.EOF) {
		return map[string]string{"payload": "body is required"}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return map[string]string{"payload": "invalid json"}
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return map[string]string{ute.Field: "must be a " + ute.Type.String()}
	}
	if errors.As(err, &se) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()
	isString := fe.Kind() == reflect.String

	switch fe.ActualTag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "required_without":
		return "is required when " + param + " is not present"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters long", param)
		}
		return "must be at least " + param
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters long", param)
		}
		return "must be at most " + param
	case "len":
		if isString {
			return fmt.Sprintf("must be exactly %s characters long", param)
		}
		return "must be exactly " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "gt":
		return "must be greater than " + param
	case "lt":
		return "must be less than " + param
	case "oneof":
		return "must be one of [" + strings.ReplaceAll(param, " ", ", ") + "]"
	}
	if param != "" {
		return fmt.Sprintf("failed on %s=%s", fe.Tag(), param)
	}
	return "failed on " + fe.Tag()
}
