// Package service provides testify mocks of the domain service interfaces.
package service

import (
	"context"

	"citas/internal/domain/entity"
	"citas/internal/domain/service"

	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockCompanyLookup mocks service.CompanyLookup.
type MockCompanyLookup struct {
	mock.Mock
}

// NewMockCompanyLookup creates a mock that asserts its expectations on cleanup.
func NewMockCompanyLookup(t testingT) *MockCompanyLookup {
	m := &MockCompanyLookup{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockCompanyLookup) FindCompany(ctx context.Context, numeroPatronal string) (*service.CompanyRecord, error) {
	args := m.Called(ctx, numeroPatronal)
	record, _ := args.Get(0).(*service.CompanyRecord)

	return record, args.Error(1)
}

// MockInsuredLookup mocks service.InsuredLookup.
type MockInsuredLookup struct {
	mock.Mock
}

// NewMockInsuredLookup creates a mock that asserts its expectations on cleanup.
func NewMockInsuredLookup(t testingT) *MockInsuredLookup {
	m := &MockInsuredLookup{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockInsuredLookup) FindInsured(ctx context.Context, nationalID, birthDate string) (*service.InsuredRecord, error) {
	args := m.Called(ctx, nationalID, birthDate)
	record, _ := args.Get(0).(*service.InsuredRecord)

	return record, args.Error(1)
}

// MockExamRegistry mocks service.ExamRegistry.
type MockExamRegistry struct {
	mock.Mock
}

// NewMockExamRegistry creates a mock that asserts its expectations on cleanup.
func NewMockExamRegistry(t testingT) *MockExamRegistry {
	m := &MockExamRegistry{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockExamRegistry) RegisterExam(ctx context.Context, registration *service.ExamRegistration) (string, error) {
	args := m.Called(ctx, registration)

	return args.String(0), args.Error(1)
}

func (m *MockExamRegistry) UploadDocument(ctx context.Context, upload *service.DocumentUpload) error {
	return m.Called(ctx, upload).Error(0)
}

// MockExamReviewAPI mocks service.ExamReviewAPI.
type MockExamReviewAPI struct {
	mock.Mock
}

// NewMockExamReviewAPI creates a mock that asserts its expectations on cleanup.
func NewMockExamReviewAPI(t testingT) *MockExamReviewAPI {
	m := &MockExamReviewAPI{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockExamReviewAPI) ListExamRequests(ctx context.Context, status entity.ExamStatus) ([]*entity.ExamRequest, error) {
	args := m.Called(ctx, status)
	requests, _ := args.Get(0).([]*entity.ExamRequest)

	return requests, args.Error(1)
}

func (m *MockExamReviewAPI) GetExamRequest(ctx context.Context, examID string) (*entity.ExamRequest, error) {
	args := m.Called(ctx, examID)
	request, _ := args.Get(0).(*entity.ExamRequest)

	return request, args.Error(1)
}

func (m *MockExamReviewAPI) SubmitReview(ctx context.Context, decision *service.ReviewDecision) error {
	return m.Called(ctx, decision).Error(0)
}

func (m *MockExamReviewAPI) ScheduleAppointment(ctx context.Context, req *service.AppointmentRequest) error {
	return m.Called(ctx, req).Error(0)
}
