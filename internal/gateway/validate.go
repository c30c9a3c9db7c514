package gateway

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// numericRanges holds the documented bounds of the ranged request fields.
var numericRanges = map[string][2]string{
	"business_sub_category_top_n":  {"1", "100"},
	"answer_top_n":                 {"1", "100"},
	"llm_params.temperature":       {"0.0", "2.0"},
	"llm_params.frequency_penalty": {"-2.0", "2.0"},
	"llm_params.presence_penalty":  {"-2.0", "2.0"},
	"llm_params.top_p":             {"0.0", "1.0"},
	"llm_params.max_tokens":        {"1", "128000"},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// validationMessage describes the first failed rule.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := fieldPath(fe.Namespace())

	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required and must be a non-empty %s", field, kindName(fe.Kind()))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "lte":
		if r, ok := numericRanges[field]; ok {
			return fmt.Sprintf("%s must be between %s and %s", field, r[0], r[1])
		}
		if fe.Tag() == "gte" {
			return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		}
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "base64":
		return fmt.Sprintf("%s must be base64 encoded", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldPath drops the root struct name: "RagRequest.llm_params.top_p"
// becomes "llm_params.top_p".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func kindName(k reflect.Kind) string {
	switch k {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int64, reflect.Float64:
		return "number"
	default:
		return "string"
	}
}
