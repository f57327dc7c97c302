package slots

import (
	"errors"
	"fmt"

	"chairbook/internal/models"
)

var (
	ErrInvalidClock = errors.New("invalid time of day")
	ErrInvalidStep  = errors.New("step must be positive")
	ErrInvalidRange = errors.New("day start must be before day end")
)

// Generate walks from dayStart to dayEnd in stepMinutes increments.
// The last slot never ends after dayEnd; a trailing partial step is dropped.
func Generate(dayStart, dayEnd string, stepMinutes int) ([]models.SlotTemplate, error) {
	if stepMinutes <= 0 {
		return nil, ErrInvalidStep
	}
	start, err := ParseClock(dayStart)
	if err != nil {
		return nil, fmt.Errorf("day start: %w", err)
	}
	end, err := ParseClock(dayEnd)
	if err != nil {
		return nil, fmt.Errorf("day end: %w", err)
	}
	if start >= end {
		return nil, ErrInvalidRange
	}

	res := make([]models.SlotTemplate, 0, (end-start)/stepMinutes)
	for t := start; t+stepMinutes <= end; t += stepMinutes {
		res = append(res, models.SlotTemplate{
			Start: FormatClock(t),
			End:   FormatClock(t + stepMinutes),
		})
	}
	return res, nil
}

// Generator holds a validated business-day shape.
type Generator struct {
	DayStart    string
	DayEnd      string
	StepMinutes int
}

// Default is the 08:00-18:00 day in 30-minute slots.
func Default() Generator {
	return Generator{
		DayStart:    models.DefaultDayStart,
		DayEnd:      models.DefaultDayEnd,
		StepMinutes: models.DefaultStepMinutes,
	}
}

// NewGenerator validates the shape once so Templates cannot fail later.
func NewGenerator(dayStart, dayEnd string, stepMinutes int) (Generator, error) {
	if _, err := Generate(dayStart, dayEnd, stepMinutes); err != nil {
		return Generator{}, err
	}
	return Generator{DayStart: dayStart, DayEnd: dayEnd, StepMinutes: stepMinutes}, nil
}

// Templates returns a fresh slice on every call.
func (g Generator) Templates() []models.SlotTemplate {
	res, err := Generate(g.DayStart, g.DayEnd, g.StepMinutes)
	if err != nil {
		return nil
	}
	return res
}
