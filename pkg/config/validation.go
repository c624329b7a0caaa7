package config

import (
	"reflect"

	acerr "github.com/verityhq/authcore/pkg/errors"
)

// Validator lets configuration structs run custom validation after
// loading. If the struct passed to [Loader.Load] (or a pointer to it)
// implements Validator, Validate is called after required-field checks
// pass. Return an error to fail the load.
type Validator interface {
	Validate() error
}

// validate enforces `required:"true"` fields and invokes the struct's
// Validate method when implemented.
func validate(cfg any, rv reflect.Value) error {
	if missing := requiredFields(rv, ""); len(missing) > 0 {
		return acerr.New(acerr.CodeValidationRequired,
			"config: missing required fields").
			WithDetail("fields", missing)
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, ok := acerr.AsError(err); ok {
				return err
			}
			return acerr.Wrap(err, acerr.CodeValidation, "config: validation failed")
		}
	}

	return nil
}

// requiredFields walks the struct and collects dotted paths of fields
// tagged `required:"true"` that hold their zero value.
func requiredFields(rv reflect.Value, path string) []string {
	var missing []string
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		name := sf.Name
		if path != "" {
			name = path + "." + sf.Name
		}

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			missing = append(missing, requiredFields(field, name)...)
			continue
		}

		if sf.Tag.Get("required") == "true" && field.IsZero() {
			missing = append(missing, name)
		}
	}

	return missing
}
