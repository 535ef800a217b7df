package impl

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"citas/internal/domain/entity"
	"citas/internal/errors"
	"citas/internal/usecase"

	"github.com/go-playground/validator/v10"
)

// Violation codes reported by the wizard gates.
const (
	ViolationReceiptMissing          = "RECEIPT_MISSING"
	ViolationInvalidField            = "INVALID_FIELD"
	ViolationEmployerContactRequired = "EMPLOYER_CONTACT_REQUIRED"
	ViolationExcessPersons           = "EXCESS_PERSONS"
	ViolationCountMismatch           = "COUNT_MISMATCH"
	ViolationPersonIncomplete        = "PERSON_INCOMPLETE"
)

//nolint:gochecknoglobals
var (
	gateValidatorOnce sync.Once
	gateValidator     *validator.Validate
)

func receiptValidator() *validator.Validate {
	gateValidatorOnce.Do(func() {
		gateValidator = validator.New(validator.WithRequiredStructEnabled())
		gateValidator.RegisterTagNameFunc(jsonFieldName)
	})

	return gateValidator
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}

	return name
}

// EvaluateStep1 checks the receipt data. Employer email and phone become required when
// more than one insured person is declared, and a declared count below the number of
// collected persons blocks the step until the excess persons are removed.
func EvaluateStep1(state *entity.WizardState) usecase.GateResult {
	if state == nil || state.Receipt == nil {
		return failed(usecase.Violation{
			Code:    ViolationReceiptMissing,
			Message: "Ingrese los datos del recibo",
		})
	}

	receipt := state.Receipt
	var violations []usecase.Violation

	if err := receiptValidator().Struct(receipt); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				violations = append(violations, usecase.Violation{
					Code:    ViolationInvalidField,
					Field:   fe.Field(),
					Message: fieldMessage(fe),
				})
			}
		}
	}

	if receipt.InsuredCount > 1 {
		if strings.TrimSpace(receipt.EmployerEmail) == "" {
			violations = append(violations, usecase.Violation{
				Code:    ViolationEmployerContactRequired,
				Field:   "employerEmail",
				Message: "El correo del empleador es obligatorio cuando hay más de un asegurado",
			})
		}
		if strings.TrimSpace(receipt.EmployerPhone) == "" {
			violations = append(violations, usecase.Violation{
				Code:    ViolationEmployerContactRequired,
				Field:   "employerPhone",
				Message: "El teléfono del empleador (8 dígitos) es obligatorio cuando hay más de un asegurado",
			})
		}
	}

	if receipt.InsuredCount >= 1 && len(state.Persons) > receipt.InsuredCount {
		excess := len(state.Persons) - receipt.InsuredCount
		violations = append(violations, usecase.Violation{
			Code:    ViolationExcessPersons,
			Field:   "insuredCount",
			Message: fmt.Sprintf("Hay %d asegurado(s) de más, quítelos antes de continuar", excess),
		})
	}

	return result(violations)
}

// EvaluateStep2 passes only when the number of collected persons equals the declared
// count and every person is complete.
func EvaluateStep2(state *entity.WizardState) usecase.GateResult {
	if state == nil || state.Receipt == nil {
		return failed(usecase.Violation{
			Code:    ViolationReceiptMissing,
			Message: "Ingrese los datos del recibo",
		})
	}

	var violations []usecase.Violation

	if len(state.Persons) != state.Receipt.InsuredCount {
		violations = append(violations, usecase.Violation{
			Code:  ViolationCountMismatch,
			Field: "persons",
			Message: fmt.Sprintf("Se declararon %d asegurado(s) y se registraron %d",
				state.Receipt.InsuredCount, len(state.Persons)),
		})
	}

	for _, person := range state.Persons {
		if missing := missingParts(person); len(missing) > 0 {
			violations = append(violations, usecase.Violation{
				Code:    ViolationPersonIncomplete,
				Field:   person.Key(),
				Message: fmt.Sprintf("Falta completar %s de %s", strings.Join(missing, ", "), displayName(person)),
			})
		}
	}

	return result(violations)
}

// CanFinalize reports whether the request may be submitted.
func CanFinalize(state *entity.WizardState) bool {
	return EvaluateStep1(state).Passed && EvaluateStep2(state).Passed
}

func missingParts(person *entity.InsuredPerson) []string {
	var missing []string
	if strings.TrimSpace(person.Email) == "" {
		missing = append(missing, "correo")
	}
	if strings.TrimSpace(person.Phone) == "" {
		missing = append(missing, "teléfono")
	}
	if person.Documents.Front == nil {
		missing = append(missing, "anverso del carnet")
	}
	if person.Documents.Back == nil {
		missing = append(missing, "reverso del carnet")
	}

	return missing
}

func displayName(person *entity.InsuredPerson) string {
	if person.FullName != "" {
		return person.FullName
	}

	return "CI " + person.NationalID
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("El campo %s es obligatorio", fe.Field())
	case "numeric":
		return fmt.Sprintf("El campo %s solo admite dígitos", fe.Field())
	case "email":
		return fmt.Sprintf("El campo %s debe ser un correo válido", fe.Field())
	case "len":
		return fmt.Sprintf("El campo %s debe tener %s caracteres", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("El campo %s admite como máximo %s caracteres", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("El campo %s debe ser mayor a %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("El campo %s debe ser al menos %s", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("El campo %s debe tener el formato AAAA-MM-DD", fe.Field())
	default:
		return fmt.Sprintf("El campo %s no es válido", fe.Field())
	}
}

func failed(v usecase.Violation) usecase.GateResult {
	return usecase.GateResult{Violations: []usecase.Violation{v}}
}

func result(violations []usecase.Violation) usecase.GateResult {
	return usecase.GateResult{
		Passed:     len(violations) == 0,
		Violations: violations,
	}
}
