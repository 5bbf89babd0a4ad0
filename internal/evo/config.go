package evo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"pathga/internal/model"
)

var ErrInvalidConfig = errors.New("invalid search config")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Observer receives the diagnostics of every evaluated generation.
type Observer func(model.GenerationDiagnostics)

// Config parameterizes one path search. Each search owns its Config; nothing
// here is process-wide.
type Config struct {
	PopulationSize       int     `json:"population_size" validate:"gte=2"`
	Generations          int     `json:"generations" validate:"gte=1"`
	MutationRate         float64 `json:"mutation_rate" validate:"gte=0,lte=1"`
	CrossoverRate        float64 `json:"crossover_rate" validate:"gte=0,lte=1"`
	TournamentSize       int     `json:"tournament_size" validate:"gte=1"`
	EliteCount           int     `json:"elite_count" validate:"gte=0,ltefield=PopulationSize"`
	MaxConstructAttempts int     `json:"max_construct_attempts" validate:"gte=1"`
	Seed                 int64   `json:"seed"`

	Selector Selector `json:"-"`
	Observer Observer `json:"-"`
}

// DefaultConfig returns the parameters the Romania and exam graph runs use.
func DefaultConfig() Config {
	return Config{
		PopulationSize:       150,
		Generations:          300,
		MutationRate:         0.2,
		CrossoverRate:        0.8,
		TournamentSize:       5,
		EliteCount:           2,
		MaxConstructAttempts: 1000,
		Seed:                 1,
	}
}

func (c Config) Validate() error {
	return CheckStruct(c)
}

// CheckStruct runs the struct-tag validation shared by the search configs and
// folds validator errors into one ErrInvalidConfig.
func CheckStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
