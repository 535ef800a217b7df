package entity

import (
	"strconv"
	"time"
)

// ReceiptData is the step-1 data of the exam wizard.
type ReceiptData struct {
	ReceiptNumber string  `json:"receiptNumber" validate:"required,numeric,max=20"`
	ReceiptDate   string  `json:"receiptDate" validate:"required,datetime=2006-01-02"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	InsuredCount  int     `json:"insuredCount" validate:"required,gte=1"`
	EmployerEmail string  `json:"employerEmail" validate:"omitempty,email,max=200"`
	EmployerPhone string  `json:"employerPhone" validate:"omitempty,len=8,numeric"`
	Notes         string  `json:"notes" validate:"max=200"`
}

// WizardState is the wizard-local state persisted for a client between requests.
type WizardState struct {
	Step    int              `json:"step"`
	Receipt *ReceiptData     `json:"receipt,omitempty"`
	Persons []*InsuredPerson `json:"persons"`
	// RegisteredExamID is set once the exam registration API accepted the request,
	// so a retry after a document failure does not register twice.
	RegisteredExamID string    `json:"registeredExamId,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// FindPerson returns the person with the given key and its index.
func (w *WizardState) FindPerson(key string) (*InsuredPerson, int) {
	for i, person := range w.Persons {
		if person.Key() == key {
			return person, i
		}
	}

	return nil, -1
}

// HasNationalID reports whether a person with the national id was already collected.
func (w *WizardState) HasNationalID(nationalID string) bool {
	for _, person := range w.Persons {
		if person.NationalID == nationalID {
			return true
		}
	}

	return false
}

// ExamStatus is the review status of a registered exam request.
type ExamStatus string

const (
	ExamStatusPending   ExamStatus = "PENDIENTE"
	ExamStatusApproved  ExamStatus = "APROBADO"
	ExamStatusObserved  ExamStatus = "OBSERVADO"
	ExamStatusRejected  ExamStatus = "RECHAZADO"
	ExamStatusScheduled ExamStatus = "PROGRAMADO"
)

// ExamRequest is an exam registration as seen by administrators.
type ExamRequest struct {
	ID             string           `json:"id"`
	NumeroPatronal string           `json:"numeroPatronal"`
	CompanyName    string           `json:"companyName"`
	TaxID          string           `json:"taxId"`
	Notes          string           `json:"notes"`
	Status         ExamStatus       `json:"status"`
	ReviewNotes    string           `json:"reviewNotes,omitempty"`
	Persons        []*InsuredPerson `json:"persons,omitempty"`
	Appointment    *Appointment     `json:"appointment,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Appointment is a scheduled clinical appointment for an approved exam request.
type Appointment struct {
	ScheduledAt time.Time `json:"scheduledAt"`
	Notes       string    `json:"notes,omitempty"`
}

func formatInsuredID(id int64) string {
	return strconv.FormatInt(id, 10)
}
