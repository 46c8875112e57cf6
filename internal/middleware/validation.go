package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/jonxmitchell/ark-asa-shop-config-generator/internal/errors"
)

// DefaultMaxBodySize caps request bodies read by Validator.Decode
const DefaultMaxBodySize = 10 * 1024 * 1024

// Validator decodes JSON request bodies and checks their struct tags
type Validator struct {
	validate    *validator.Validate
	maxBodySize int64
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v, maxBodySize: DefaultMaxBodySize}
}

// Decode reads r's JSON body into dst and validates it. The returned error
// is an *apierrors.APIError ready for the error handler.
func (v *Validator) Decode(r *http.Request, dst interface{}) error {
	if r.ContentLength > v.maxBodySize {
		return apierrors.NewWithDetails(
			http.StatusRequestEntityTooLarge,
			"PAYLOAD_TOO_LARGE",
			"Request body exceeds maximum allowed size",
			map[string]interface{}{"max_size": v.maxBodySize},
		)
	}
	r.Body = http.MaxBytesReader(nil, r.Body, v.maxBodySize)

	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierrors.InvalidRequestWithError(fmt.Errorf("request body is empty"))
		}
		return apierrors.InvalidRequestWithError(err)
	}
	return v.Struct(dst)
}

// Struct validates an already decoded value
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return apierrors.FromValidation(err)
	}
	return nil
}
