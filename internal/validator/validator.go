package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/schoolpd/assessment-service/internal/models"
)

// Validator wraps go-playground/validator with our custom rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()

	v := &Validator{validate: validate}
	v.registerRules()

	return v
}

// Validate runs struct validation and returns field-level errors, or nil.
func (v *Validator) Validate(s interface{}) ValidationErrors {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateRuleCreate validates rule creation including the cross-field
// targeting requirement.
func (v *Validator) ValidateRuleCreate(req *RuleCreateRequest) ValidationErrors {
	errs := v.Validate(req)

	if !req.HasTarget() {
		errs = append(errs, ValidationError{
			Field:   "assigned_to",
			Message: "must set at least one of user, role, campus",
			Rule:    "rule_target",
		})
	}

	return errs
}

func (v *Validator) registerRules() {
	v.validate.RegisterValidation("assessment_type", func(fl validator.FieldLevel) bool {
		return models.AssessmentType(fl.Field().String()).Valid()
	})

	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.QuestionMCQ, models.QuestionMultiSelect, models.QuestionText:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		switch models.UserRole(fl.Field().String()) {
		case models.RoleTeacher, models.RoleCoach, models.RolePrincipal, models.RoleAdmin:
			return true
		}
		return false
	})
}
