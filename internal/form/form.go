// Package form validates input structs before they are sent to the API.
//
// Rules come from `validate` struct tags. Messages come from the `msg` tag,
// a comma separated list of tag=message pairs, so every form can carry the
// exact wording shown next to the field.
package form

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// FieldErrors maps a JSON field name to the message shown for it.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return strings.Join(parts, "; ")
}

// First returns the message of the first field in name order.
func (fe FieldErrors) First() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return fe[keys[0]]
}

// Validate checks v against its struct tags. It returns nil or FieldErrors.
func Validate(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	typ := reflect.TypeOf(v)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	out := FieldErrors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(typ, fe)
	}
	return out
}

// AsFieldErrors extracts FieldErrors from err.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func message(typ reflect.Type, fe validator.FieldError) string {
	if typ.Kind() == reflect.Struct {
		if field, ok := typ.FieldByName(fe.StructField()); ok {
			if msg, ok := lookup(field.Tag.Get("msg"), fe.Tag()); ok {
				return msg
			}
		}
	}
	return fallback(fe)
}

func lookup(tag, rule string) (string, bool) {
	for _, pair := range strings.Split(tag, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if ok && strings.TrimSpace(k) == rule {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func fallback(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email"
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "number", "numeric":
		return fe.Field() + " must be a number"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}
