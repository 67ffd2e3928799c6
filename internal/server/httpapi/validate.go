package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/and161185/chirper/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const msgBadBody = "Invalid request body."

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the process-wide validator; field names come from the label tag.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
	})
	return validate
}

// check trims every string field of v and validates it. Only the first failure is reported.
func check(v any) error {
	trimStrings(v)
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	return errs.E(errs.ErrInvalid, firstMessage(err))
}

func firstMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "Invalid request."
	}
	fe := ve[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be %s or more characters long.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s or fewer characters long.", fe.Field(), fe.Param())
	case "email":
		return "Invalid email address."
	case "url":
		return fmt.Sprintf("%s must be a valid URL.", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

func trimStrings(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

// decode reads a JSON body of at most limit bytes into dst and validates it.
// An empty body decodes as an empty object so required-field messages still apply.
func decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errs.Wrap(errs.ErrInvalid, msgBadBody, err)
	}
	return check(dst)
}
