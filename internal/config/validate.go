package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate = validator.New()

// Validate checks struct tags first, then the cross-field rules the
// downstream packages enforce
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	if err := c.DomainCatalog().Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.HydraulicParams().Validate(); err != nil {
		return fmt.Errorf("hydraulics: %w", err)
	}
	if c.Genetic.ElitismCount > c.Genetic.PopulationSize {
		return fmt.Errorf("genetic.elitism_count: must not exceed population_size (%d)", c.Genetic.PopulationSize)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Report the first failure only
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must have at least %s entries", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %v", field, param, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
