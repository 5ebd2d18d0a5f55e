package psytest

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs tag validation and converts failures into a ValidationError.
func ValidateStruct(msg string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &ValidationError{Msg: msg}
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		fields[ns] = fe.Tag()
	}
	return &ValidationError{Msg: msg, Fields: fields}
}

// ValidateDefinition checks a test definition before it is stored.
func ValidateDefinition(d TestDefinition) error {
	if err := ValidateStruct("invalid test definition", d); err != nil {
		return err
	}
	fields := map[string]string{}
	factors := map[string]bool{}
	for i, f := range d.Factors {
		if factors[f.ID] {
			fields[fmt.Sprintf("factors[%d].id", i)] = "duplicate"
		}
		factors[f.ID] = true
	}

	seen := map[string]bool{}
	for i, q := range d.Questions {
		at := func(f string) string { return fmt.Sprintf("questions[%d].%s", i, f) }
		if seen[q.ID] {
			fields[at("id")] = "duplicate"
		}
		seen[q.ID] = true
		for name, v := range map[string]float64{
			"points": q.Points, "weight": q.Weight,
			"scale_min": q.ScaleMin, "scale_max": q.ScaleMax,
		} {
			if !finite(v) {
				fields[at(name)] = "must be finite"
			}
		}
		if !q.Type.Known() {
			fields[at("type")] = "unknown question type"
			continue
		}
		opts := map[string]bool{}
		correct := 0
		for j, o := range q.Options {
			if opts[o.ID] {
				fields[at(fmt.Sprintf("options[%d].id", j))] = "duplicate"
			}
			opts[o.ID] = true
			if !finite(o.Points) {
				fields[at(fmt.Sprintf("options[%d].points", j))] = "must be finite"
			}
			if o.IsCorrect {
				correct++
			}
		}
		switch q.Type {
		case scoring.SingleChoice, scoring.MultipleChoice:
			if len(q.Options) == 0 {
				fields[at("options")] = "required"
			} else if correct == 0 {
				fields[at("options")] = "no correct option"
			}
		case scoring.TrueFalse:
			if len(q.Options) != 2 {
				fields[at("options")] = "true_false needs exactly two options"
			} else if correct != 1 {
				fields[at("options")] = "true_false needs exactly one correct option"
			}
		case scoring.RatingScale:
			if finite(q.ScaleMin) && finite(q.ScaleMax) && q.ScaleMin >= q.ScaleMax {
				fields[at("scale_max")] = "must be greater than scale_min"
			}
			if q.FactorID != "" && !factors[q.FactorID] {
				fields[at("factor_id")] = "unknown factor"
			}
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Msg: "invalid test definition", Fields: fields}
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
