package usecase

import (
	"context"

	"citas/internal/domain/entity"
)

// ReviewInput is an administrator decision on an exam request.
type ReviewInput struct {
	Decision entity.ExamStatus `json:"decision" validate:"required,oneof=APROBADO OBSERVADO RECHAZADO"`
	Notes    string            `json:"notes" validate:"max=200"`
}

// AppointmentInput is the requested appointment slot, in the clinic's time zone.
type AppointmentInput struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Time  string `json:"time" validate:"required,datetime=15:04"`
	Notes string `json:"notes" validate:"max=200"`
}

// ReviewUsecase is the administrator side of exam requests.
type ReviewUsecase interface {
	ListRequests(ctx context.Context, status entity.ExamStatus) ([]*entity.ExamRequest, error)
	GetRequest(ctx context.Context, examID string) (*entity.ExamRequest, error)
	Review(ctx context.Context, examID string, input *ReviewInput) (*entity.ExamRequest, error)
	Schedule(ctx context.Context, examID string, input *AppointmentInput) (*entity.ExamRequest, error)
}
