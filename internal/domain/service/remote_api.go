package service

import (
	"context"
	"io"
	"time"

	"citas/internal/domain/entity"
)

// CompanyRecord is the canonical employer lookup response.
type CompanyRecord struct {
	ID             string `mapstructure:"id"`
	RazonSocial    string `mapstructure:"razonSocial"`
	NIT            string `mapstructure:"nit"`
	NumeroPatronal string `mapstructure:"numeroPatronal"`
	Estado         string `mapstructure:"estado"`
}

// InsuredRecord is the canonical insured-person lookup response.
type InsuredRecord struct {
	InsuredID    int64  `mapstructure:"insuredId"`
	NationalID   string `mapstructure:"nationalId"`
	FullName     string `mapstructure:"fullName"`
	BirthDate    string `mapstructure:"birthDate"`
	Gender       string `mapstructure:"gender"`
	Email        string `mapstructure:"email"`
	Phone        string `mapstructure:"phone"`
	CompanyName  string `mapstructure:"companyName"`
	CompanyTaxID string `mapstructure:"companyTaxId"`
}

// ExamRegistration is the payload submitted to the exam registration API.
type ExamRegistration struct {
	NumeroPatronal string
	CompanyName    string
	TaxID          string
	Notes          string
	Receipt        entity.ReceiptData
	Persons        []*entity.InsuredPerson
}

// DocumentUpload is one document submitted to the document upload API.
type DocumentUpload struct {
	ExamID       string
	DocumentType string
	Notes        string
	FileName     string
	ContentType  string
	Content      io.Reader
}

// ReviewDecision is an administrator verdict on an exam request.
type ReviewDecision struct {
	ExamID string
	Status entity.ExamStatus
	Notes  string
}

// AppointmentRequest schedules the clinical appointment of an approved request.
type AppointmentRequest struct {
	ExamID      string
	ScheduledAt time.Time
	Notes       string
}

// CompanyLookup resolves employers by patronal number.
type CompanyLookup interface {
	// FindCompany returns nil without error when no employer matches.
	FindCompany(ctx context.Context, numeroPatronal string) (*CompanyRecord, error)
}

// InsuredLookup resolves insured persons by national id and birth date.
type InsuredLookup interface {
	// FindInsured returns nil without error when no person matches.
	FindInsured(ctx context.Context, nationalID, birthDate string) (*InsuredRecord, error)
}

// ExamRegistry registers exam requests and their documents.
type ExamRegistry interface {
	RegisterExam(ctx context.Context, registration *ExamRegistration) (examID string, err error)
	UploadDocument(ctx context.Context, upload *DocumentUpload) error
}

// ExamReviewAPI exposes the administrator side of exam requests.
type ExamReviewAPI interface {
	ListExamRequests(ctx context.Context, status entity.ExamStatus) ([]*entity.ExamRequest, error)
	// GetExamRequest returns nil without error when the request does not exist.
	GetExamRequest(ctx context.Context, examID string) (*entity.ExamRequest, error)
	SubmitReview(ctx context.Context, decision *ReviewDecision) error
	ScheduleAppointment(ctx context.Context, req *AppointmentRequest) error
}
