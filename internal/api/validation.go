package api

import (
	"errors"
	"reflect"
	"strings"

	"chairbook/internal/slots"

	val "github.com/go-playground/validator/v10"
)

var validate = newValidator()

var messages = map[string]string{
	"required": "{field} is required",
	"gte":      "{field} must be greater than or equal to {param}",
	"lte":      "{field} must be less than or equal to {param}",
	"min":      "{field} must be greater than or equal to {param}",
	"max":      "{field} must be less than or equal to {param}",
	"oneof":    "{field} must be one of {param}",
	"clock":    "{field} must be a time of day (HH:MM)",
	"datetime": "{field} must match {param}",
}

func newValidator() *val.Validate {
	v := val.New(val.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("clock", func(fl val.FieldLevel) bool {
		_, err := slots.ParseClock(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

type slotsQuery struct {
	Start string `query:"start" validate:"omitempty,clock"`
	End   string `query:"end" validate:"omitempty,clock"`
	Step  int    `query:"step" validate:"gte=0,lte=1440"`
}

type dayQuery struct {
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

type checkQuery struct {
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	Time string `query:"time" validate:"required,clock"`
}

type calendarQuery struct {
	From string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	Days int    `query:"days" validate:"min=1,max=31"`
}

type eligibilityQuery struct {
	Role string `query:"role" validate:"omitempty,oneof=user attendant admin"`
	Now  string `query:"now"`
}

func validateQuery[T any](q *T) error {
	if err := validate.Struct(q); err != nil {
		return errors.New(message(err))
	}
	return nil
}

func message(err error) string {
	var valErrors val.ValidationErrors
	if errors.As(err, &valErrors) {
		for _, valErr := range valErrors {
			if msg := messages[valErr.Tag()]; msg != "" {
				msg = strings.ReplaceAll(msg, "{field}", valErr.Field())
				return strings.ReplaceAll(msg, "{param}", valErr.Param())
			}
		}
		return valErrors.Error()
	}
	return err.Error()
}
