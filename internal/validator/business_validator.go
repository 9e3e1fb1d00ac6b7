package validator

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/submission-service/internal/models"
)

// TargetDateLayout is the wire form of submission target dates.
const TargetDateLayout = "2006-01-02"

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

func (bv *BusinessValidator) registerBusinessRules() {
	// Closed status set: a submission status can never be an arbitrary string.
	_ = bv.validate.RegisterValidation("submission_status", func(fl validator.FieldLevel) bool {
		return models.ValidStatus(models.SubmissionStatus(fl.Field().String()))
	})

	// YYYY-MM-DD date field.
	_ = bv.validate.RegisterValidation("submission_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(TargetDateLayout, fl.Field().String())
		return err == nil
	})
}

// Validate validates struct-level rules for any request type
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateSubmissionCreate validates submission creation business rules
func (bv *BusinessValidator) ValidateSubmissionCreate(req *SubmissionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	// A whitespace-only title passes struct min=1 but is still blank.
	if strings.TrimSpace(req.Title) == "" {
		errors = append(errors, ValidationError{
			Field:   "title",
			Message: "must not be blank",
			Value:   req.Title,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateSubmissionUpdate validates submission update business rules
func (bv *BusinessValidator) ValidateSubmissionUpdate(req *SubmissionUpdateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		errors = append(errors, ValidationError{
			Field:   "title",
			Message: "must not be blank",
			Value:   *req.Title,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ParseTargetDate parses an already validated date string.
func ParseTargetDate(value string) (time.Time, error) {
	return time.Parse(TargetDateLayout, value)
}

// Validator bundles struct validation and business rules for injection into
// services and handlers.
type Validator struct {
	business *BusinessValidator
}

func New() *Validator {
	return &Validator{business: NewBusinessValidator()}
}

func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// Struct runs plain struct-tag validation.
func (v *Validator) Struct(s interface{}) ValidationErrors {
	return v.business.Validate(s)
}
