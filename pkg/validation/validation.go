// Package validation owns the shared request validator and its English messages.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
	once       sync.Once
)

func setup() {
	validate = validator.New()

	// Field names in messages follow the JSON payload, not the Go struct.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	locale := en.New()
	uni := ut.New(locale, locale)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
}

// Validator returns the process-wide validator with translations registered.
func Validator() *validator.Validate {
	once.Do(setup)
	return validate
}

// UseWithGin makes gin's binding engine validate `validate` tags with the shared validator.
func UseWithGin() {
	binding.Validator = ginValidator{v: Validator()}
}

// Fields maps each failed field to a human-readable message.
// It returns nil when err carries no field errors.
func Fields(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	Validator()
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fieldPath(fe)] = fe.Translate(translator)
	}
	return fields
}

// fieldPath drops the root struct name so nested fields read like "course_ids[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

type ginValidator struct {
	v *validator.Validate
}

func (g ginValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	return g.v.Struct(obj)
}

func (g ginValidator) Engine() any {
	return g.v
}
