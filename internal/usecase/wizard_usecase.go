package usecase

import (
	"context"
	"io"

	"citas/internal/domain/entity"
)

// Violation describes one reason a wizard gate did not pass.
type Violation struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// GateResult is the outcome of evaluating a wizard step.
type GateResult struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
}

// NewPerson is the data collected for an insured person before documents are attached.
type NewPerson struct {
	InsuredID    int64  `json:"insuredId"`
	NationalID   string `json:"nationalId" validate:"required,max=15"`
	FullName     string `json:"fullName" validate:"required,max=100"`
	BirthDate    string `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Gender       string `json:"gender" validate:"max=20"`
	Email        string `json:"email" validate:"omitempty,email,max=100"`
	Phone        string `json:"phone" validate:"omitempty,numeric,min=7,max=20"`
	CompanyName  string `json:"companyName" validate:"max=100"`
	CompanyTaxID string `json:"companyTaxId" validate:"max=20"`
}

// PersonContact is the contact data of an insured person.
type PersonContact struct {
	Email string `json:"email" validate:"required,email,max=100"`
	Phone string `json:"phone" validate:"required,numeric,min=7,max=20"`
}

// DocumentUpload is a file attached to one document slot.
type DocumentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// WizardView is the wizard state together with its gate results.
type WizardView struct {
	State       *entity.WizardState `json:"state"`
	Step1       GateResult          `json:"step1"`
	Step2       GateResult          `json:"step2"`
	CanFinalize bool                `json:"canFinalize"`
}

// FinalizeResult reports a completed exam registration.
type FinalizeResult struct {
	ExamID            string `json:"examId"`
	UploadedDocuments int    `json:"uploadedDocuments"`
}

// WizardUsecase drives the exam registration wizard of one client.
type WizardUsecase interface {
	// View returns the current state and gate results.
	View(ctx context.Context) (*WizardView, error)

	// SetReceipt stores the step-1 data and returns the step-1 gate.
	SetReceipt(ctx context.Context, receipt *entity.ReceiptData) (*WizardView, error)

	// LookupPerson prefills identity fields from the insured lookup API.
	LookupPerson(ctx context.Context, nationalID, birthDate string) (*entity.InsuredPerson, error)

	// AddPerson appends a person; a repeated national id is rejected as a conflict.
	AddPerson(ctx context.Context, person *NewPerson) (*entity.InsuredPerson, error)

	// UpdatePersonContact sets the email and phone of a person.
	UpdatePersonContact(ctx context.Context, personKey string, contact *PersonContact) (*entity.InsuredPerson, error)

	// RemovePerson drops a person and its staged documents.
	RemovePerson(ctx context.Context, personKey string) error

	// AttachDocument stages a document in one slot of a person.
	AttachDocument(ctx context.Context, personKey string, side entity.DocumentSide, upload *DocumentUpload) (*entity.InsuredPerson, error)

	// DetachDocument clears one document slot of a person.
	DetachDocument(ctx context.Context, personKey string, side entity.DocumentSide) (*entity.InsuredPerson, error)

	// Advance moves to step when the gates of all previous steps pass.
	Advance(ctx context.Context, step int) (*WizardView, error)

	// Finalize registers the exam request and uploads its documents.
	Finalize(ctx context.Context) (*FinalizeResult, error)

	// Reset discards the wizard state and its staged documents.
	Reset(ctx context.Context) error
}
