package handler

import (
	"log/slog"
	"net/http"

	"citas/internal/delivery/api/response"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// documentFormField is the multipart field holding an uploaded document
const documentFormField = "file"

// WizardHandlerParams holds dependencies for WizardHandler, injected by Fx.
type WizardHandlerParams struct {
	fx.In

	Logger *slog.Logger
}

// WizardHandler serves the exam registration scope.Wizard.
type WizardHandler struct {
	logger *slog.Logger
}

// NewWizardHandler is the constructor for WizardHandler
func NewWizardHandler(params WizardHandlerParams) *WizardHandler {
	return &WizardHandler{logger: params.Logger}
}

// LookupPersonRequest identifies an insured person in the lookup API
type LookupPersonRequest struct {
	NationalID string `json:"nationalId" validate:"required,max=15"`
	BirthDate  string `json:"birthDate" validate:"required,datetime=2006-01-02"`
}

// AdvanceRequest names the step to move to
type AdvanceRequest struct {
	Step int `json:"step" validate:"required,oneof=1 2"`
}

// View returns the wizard state and its gate results
func (h *WizardHandler) View(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	view, err := scope.Wizard.View(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, view)
}

// SetReceipt stores the step-1 data. Incomplete data is kept and reported through the gate.
func (h *WizardHandler) SetReceipt(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	var req entity.ReceiptData
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}

	view, err := scope.Wizard.SetReceipt(c.Request().Context(), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, view)
}

// LookupPerson prefills an insured person from the lookup API
func (h *WizardHandler) LookupPerson(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	var req LookupPersonRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}
	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	person, err := scope.Wizard.LookupPerson(c.Request().Context(), req.NationalID, req.BirthDate)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, person)
}

// AddPerson appends an insured person to the request
func (h *WizardHandler) AddPerson(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	var req usecase.NewPerson
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}
	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	person, err := scope.Wizard.AddPerson(c.Request().Context(), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, person)
}

// UpdatePersonContact sets the email and phone of a person
func (h *WizardHandler) UpdatePersonContact(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	var req usecase.PersonContact
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}
	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	person, err := scope.Wizard.UpdatePersonContact(c.Request().Context(), c.Param("id"), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, person)
}

// RemovePerson drops a person and its staged documents
func (h *WizardHandler) RemovePerson(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	if err := scope.Wizard.RemovePerson(c.Request().Context(), c.Param("id")); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.NoContent(c)
}

// AttachDocument stages a multipart upload in one document slot
func (h *WizardHandler) AttachDocument(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	side, ok := entity.ParseDocumentSide(c.Param("side"))
	if !ok {
		return response.AppError(c, domainerrors.ErrValidationFailed.WithDetails("el lado del documento debe ser front o back"))
	}

	header, err := c.FormFile(documentFormField)
	if err != nil {
		return response.AppError(c, domainerrors.ErrInvalidDocument.WithDetails("no se recibió ningún archivo"))
	}
	file, err := header.Open()
	if err != nil {
		return response.HandleAppError(c, err)
	}
	defer file.Close()

	person, err := scope.Wizard.AttachDocument(c.Request().Context(), c.Param("id"), side, &usecase.DocumentUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, person)
}

// DetachDocument clears one document slot
func (h *WizardHandler) DetachDocument(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	side, ok := entity.ParseDocumentSide(c.Param("side"))
	if !ok {
		return response.AppError(c, domainerrors.ErrValidationFailed.WithDetails("el lado del documento debe ser front o back"))
	}

	person, err := scope.Wizard.DetachDocument(c.Request().Context(), c.Param("id"), side)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, person)
}

// Advance moves the wizard to the requested step
func (h *WizardHandler) Advance(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	var req AdvanceRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "cuerpo de la solicitud inválido")
	}
	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	view, err := scope.Wizard.Advance(c.Request().Context(), req.Step)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, view)
}

// Finalize registers the exam request and uploads its documents
func (h *WizardHandler) Finalize(c echo.Context) error {
	scope, err := clientScope(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	result, err := scope.Wizard.Finalize(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	h.logger.Info("Exam request finalized",
		slog.String("exam_id", result.ExamID),
		slog.Int("documents", result.UploadedDocuments),
	)

	return response.Success(c, http.StatusCreated, result)
}
