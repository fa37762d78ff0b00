// Package validation holds the shared validator used for request bodies and AI output.
package validation

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator with the custom tags registered.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		register(instance)
	})
	return instance
}

// Struct validates v against its `validate` tags.
func Struct(v interface{}) error {
	return Validator().Struct(v)
}

// RegisterGin adds the custom tags to gin's binding validator so `binding` tags can use them.
func RegisterGin() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func register(v *validator.Validate) {
	_ = v.RegisterValidation("notblank", notBlank)
}

// notBlank rejects strings that are empty after trimming whitespace.
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// NormalizeTitle trims a chapter or subtopic name and collapses inner whitespace runs.
func NormalizeTitle(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
