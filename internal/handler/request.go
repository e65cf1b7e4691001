package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"pipenet/internal/loader"
	"pipenet/internal/service"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// designRequest holds the query and header parameters of CreateDesign
type designRequest struct {
	Format    string `validate:"required,oneof=yaml geojson"`
	Optimizer string `validate:"omitempty,oneof=greedy genetic"`
	Name      string `validate:"max=200"`
	Seed      *int64
}

type listRequest struct {
	Limit int `validate:"gte=0,lte=1000"`
}

func parseDesignRequest(r *http.Request) (*designRequest, error) {
	format, err := loader.FormatFromContentType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	q := r.URL.Query()
	req := &designRequest{
		Format:    string(format),
		Optimizer: q.Get("optimizer"),
		Name:      q.Get("name"),
	}
	if raw := q.Get("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("seed: %q is not an integer", raw)
		}
		req.Seed = &seed
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (req *designRequest) runOptions() service.RunOptions {
	return service.RunOptions{
		Optimizer: req.Optimizer,
		Seed:      req.Seed,
		Name:      req.Name,
	}
}

func validateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "max":
			return fmt.Errorf("%s: must be at most %s characters", field, param)
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
