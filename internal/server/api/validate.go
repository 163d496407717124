package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/intelvis/intelvis/pkg/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("macaddr", func(fl validator.FieldLevel) bool {
		return utils.IsValidMAC(fl.Field().String())
	})
	v.RegisterValidation("alias", func(fl validator.FieldLevel) bool {
		return utils.IsValidAlias(fl.Field().String())
	})

	return v
}

// validateRequest returns a client-facing error naming the first invalid field.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.New("invalid request")
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "email":
		return fmt.Errorf("%s must be a valid email address", fe.Field())
	case "macaddr":
		return fmt.Errorf("%s must be a MAC address like aa:bb:cc:dd:ee:ff", fe.Field())
	case "alias":
		return fmt.Errorf("%s must be between 1 and %d characters", fe.Field(), utils.MaxAliasLength)
	case "min":
		return fmt.Errorf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}
