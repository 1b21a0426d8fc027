package dto

import (
	"reflect"
	"strings"
	"unicode"

	"wallet-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("wallet_id", validateWalletID)
	}
}

// validateWalletID accepts 12-character base62 ids.
func validateWalletID(fl validator.FieldLevel) bool {
	return domain.IsValidID(fl.Field().String())
}

// SanitizeStruct trims whitespace and drops control characters from every
// exported string field of a struct pointer. Text is stored as given
// otherwise; escaping belongs to whoever renders it.
func SanitizeStruct(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.CanSet() && f.Kind() == reflect.String {
			f.SetString(sanitize(f.String()))
		}
	}
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
