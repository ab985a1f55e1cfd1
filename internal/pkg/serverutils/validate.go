package serverutils

import (
	"github.com/go-playground/validator/v10"

	"doc-rag-be/internal/apperror"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and maps failures to a
// validation error the error middleware turns into a 400.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return apperror.Wrap(apperror.KindValidation, "request validation failed", err)
	}
	return nil
}
