package impl

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"citas/internal/domain/constants"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/repository"
	"citas/internal/domain/service"
	"citas/internal/infra/blobstore"
	"citas/internal/infra/storage/memory"
	mockSvc "citas/internal/mocks/service"
	"citas/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

type wizardFixture struct {
	ctx       context.Context
	store     repository.SlotStore
	clock     *mockSvc.FakeClock
	session   usecase.SessionUsecase
	company   usecase.CompanyCacheUsecase
	documents service.DocumentStore
	insured   *mockSvc.MockInsuredLookup
	registry  *mockSvc.MockExamRegistry
	publisher *mockSvc.MockEventPublisher
	wizard    usecase.WizardUsecase
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()

	ctx := context.Background()
	store := memory.NewSlotStore()
	clock := mockSvc.NewFakeClock(testNow)
	session := newTestSessionManager(t, store, clock)
	company := NewCompanyCache(store, clock, time.Hour, testMarkers, mockSvc.NewMockTokenValidator(t), newDiscardLogger())

	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })

	f := &wizardFixture{
		ctx:       ctx,
		store:     store,
		clock:     clock,
		session:   session,
		company:   company,
		documents: blobstore.NewDocumentStore(bucket),
		insured:   mockSvc.NewMockInsuredLookup(t),
		registry:  mockSvc.NewMockExamRegistry(t),
		publisher: mockSvc.NewMockEventPublisher(t),
	}
	f.wizard = NewWizardService("client-1", store, session, company, WizardDependencies{
		Insured:             f.insured,
		Registry:            f.registry,
		Documents:           f.documents,
		Publisher:           f.publisher,
		Clock:               clock,
		Logger:              newDiscardLogger(),
		MaxInsured:          5,
		MaxDocumentBytes:    16,
		AllowedContentTypes: []string{"image/jpeg", "image/png", "application/pdf"},
	})

	return f
}

func (f *wizardFixture) verifyCompany(t *testing.T) {
	t.Helper()

	company := activeCompany()
	require.NoError(t, f.company.Put(f.ctx, company))
	_, err := f.session.CreateSession(f.ctx, company)
	require.NoError(t, err)
}

func (f *wizardFixture) addPerson(t *testing.T, nationalID string) *entity.InsuredPerson {
	t.Helper()

	person, err := f.wizard.AddPerson(f.ctx, &usecase.NewPerson{
		NationalID: nationalID,
		FullName:   "Ana Quispe",
		BirthDate:  "1992-01-02",
	})
	require.NoError(t, err)

	return person
}

func (f *wizardFixture) attach(t *testing.T, personKey string, side entity.DocumentSide, content string) *entity.InsuredPerson {
	t.Helper()

	person, err := f.wizard.AttachDocument(f.ctx, personKey, side, &usecase.DocumentUpload{
		FileName:    string(side) + ".jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	})
	require.NoError(t, err)

	return person
}

func (f *wizardFixture) addCompletePerson(t *testing.T, nationalID string) *entity.InsuredPerson {
	t.Helper()

	person := f.addPerson(t, nationalID)
	_, err := f.wizard.UpdatePersonContact(f.ctx, person.Key(), &usecase.PersonContact{Email: "a@b.com", Phone: "77712345"})
	require.NoError(t, err)
	f.attach(t, person.Key(), entity.DocumentFront, "front")

	return f.attach(t, person.Key(), entity.DocumentBack, "back")
}

func TestWizardService_ViewStartsAtStepOne(t *testing.T) {
	f := newWizardFixture(t)

	view, err := f.wizard.View(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.State.Step)
	assert.Empty(t, view.State.Persons)
	assert.False(t, view.Step1.Passed)
	assert.False(t, view.CanFinalize)
}

func TestWizardService_AdvanceRequiresStep1(t *testing.T) {
	f := newWizardFixture(t)
	f.verifyCompany(t)

	receipt := validReceipt(2)
	receipt.EmployerPhone = ""
	_, err := f.wizard.SetReceipt(f.ctx, receipt)
	require.NoError(t, err)

	_, err = f.wizard.Advance(f.ctx, 2)
	assert.ErrorIs(t, err, domainerrors.ErrStepNotAllowed)

	_, err = f.wizard.SetReceipt(f.ctx, validReceipt(2))
	require.NoError(t, err)

	view, err := f.wizard.Advance(f.ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, view.State.Step)

	current := f.session.Current()
	require.NotNil(t, current)
	assert.Equal(t, entity.StepExamForm, current.CurrentStep)
	assert.Equal(t, entity.SessionStatusInProgress, current.Status)
	assert.Equal(t, 2, current.PartialData["wizardStep"])

	view, err = f.wizard.Advance(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.State.Step)

	_, err = f.wizard.Advance(f.ctx, 3)
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestWizardService_AddPerson(t *testing.T) {
	t.Run("requires receipt", func(t *testing.T) {
		f := newWizardFixture(t)

		_, err := f.wizard.AddPerson(f.ctx, &usecase.NewPerson{NationalID: "123", FullName: "X", BirthDate: "1990-01-01"})
		assert.ErrorIs(t, err, domainerrors.ErrStepNotAllowed)
	})

	t.Run("temporary id when insured id unknown", func(t *testing.T) {
		f := newWizardFixture(t)
		_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
		require.NoError(t, err)

		person := f.addPerson(t, " 4455667 ")
		assert.NotEmpty(t, person.TemporaryID)
		assert.Equal(t, "4455667", person.NationalID)
		assert.Equal(t, person.TemporaryID, person.Key())
	})

	t.Run("duplicate national id leaves state unchanged", func(t *testing.T) {
		f := newWizardFixture(t)
		_, err := f.wizard.SetReceipt(f.ctx, validReceipt(2))
		require.NoError(t, err)
		f.addPerson(t, "4455667")

		_, err = f.wizard.AddPerson(f.ctx, &usecase.NewPerson{NationalID: "4455667", FullName: "Otro", BirthDate: "1980-01-01"})
		assert.ErrorIs(t, err, domainerrors.ErrDuplicateInsured)

		view, err := f.wizard.View(f.ctx)
		require.NoError(t, err)
		require.Len(t, view.State.Persons, 1)
		assert.Equal(t, "Ana Quispe", view.State.Persons[0].FullName)
	})

	t.Run("maximum persons", func(t *testing.T) {
		f := newWizardFixture(t)
		_, err := f.wizard.SetReceipt(f.ctx, validReceipt(5))
		require.NoError(t, err)
		for _, id := range []string{"1", "2", "3", "4", "5"} {
			f.addPerson(t, id)
		}

		_, err = f.wizard.AddPerson(f.ctx, &usecase.NewPerson{NationalID: "6", FullName: "X", BirthDate: "1990-01-01"})
		assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
	})

	t.Run("beyond declared count", func(t *testing.T) {
		f := newWizardFixture(t)
		_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
		require.NoError(t, err)
		f.addPerson(t, "1")

		_, err = f.wizard.AddPerson(f.ctx, &usecase.NewPerson{NationalID: "2", FullName: "X", BirthDate: "1990-01-01"})
		assert.ErrorIs(t, err, domainerrors.ErrStepNotAllowed)

		view, err := f.wizard.View(f.ctx)
		require.NoError(t, err)
		assert.Len(t, view.State.Persons, 1)
	})

	t.Run("lowered count blocks adding", func(t *testing.T) {
		f := newWizardFixture(t)
		_, err := f.wizard.SetReceipt(f.ctx, validReceipt(2))
		require.NoError(t, err)
		f.addPerson(t, "1")
		f.addPerson(t, "2")

		_, err = f.wizard.SetReceipt(f.ctx, validReceipt(1))
		require.NoError(t, err)

		_, err = f.wizard.AddPerson(f.ctx, &usecase.NewPerson{NationalID: "3", FullName: "X", BirthDate: "1990-01-01"})
		assert.ErrorIs(t, err, domainerrors.ErrStepNotAllowed)

		view, err := f.wizard.View(f.ctx)
		require.NoError(t, err)
		assert.Len(t, view.State.Persons, 2)
		assert.False(t, view.Step1.Passed)
	})
}

func TestWizardService_LookupPerson(t *testing.T) {
	f := newWizardFixture(t)

	_, err := f.wizard.LookupPerson(f.ctx, "123", "10/05/1990")
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	f.insured.On("FindInsured", mock.Anything, "999", "1990-05-10").Return(nil, nil).Once()
	_, err = f.wizard.LookupPerson(f.ctx, "999", "1990-05-10")
	assert.ErrorIs(t, err, domainerrors.ErrInsuredNotFound)

	f.insured.On("FindInsured", mock.Anything, "4455667", "1990-05-10").Return(&service.InsuredRecord{
		InsuredID:  77,
		NationalID: "4455667",
		FullName:   "Juan Perez",
		BirthDate:  "1990-05-10",
	}, nil).Once()
	person, err := f.wizard.LookupPerson(f.ctx, "4455667", "1990-05-10")
	require.NoError(t, err)
	assert.Equal(t, int64(77), person.InsuredID)
	assert.Equal(t, "77", person.Key())
}

func TestWizardService_AttachDocument_Rejections(t *testing.T) {
	f := newWizardFixture(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
	require.NoError(t, err)
	person := f.addPerson(t, "4455667")

	tests := []struct {
		name   string
		upload *usecase.DocumentUpload
	}{
		{
			name:   "content type",
			upload: &usecase.DocumentUpload{FileName: "a.gif", ContentType: "image/gif", Size: 3, Content: strings.NewReader("gif")},
		},
		{
			name:   "declared size",
			upload: &usecase.DocumentUpload{FileName: "a.jpg", ContentType: "image/jpeg", Size: 17, Content: strings.NewReader("x")},
		},
		{
			name:   "actual size",
			upload: &usecase.DocumentUpload{FileName: "a.jpg", ContentType: "image/jpeg", Content: bytes.NewReader(make([]byte, 40))},
		},
		{
			name:   "empty",
			upload: &usecase.DocumentUpload{FileName: "a.pdf", ContentType: "application/pdf", Content: strings.NewReader("")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.wizard.AttachDocument(f.ctx, person.Key(), entity.DocumentFront, tt.upload)
			assert.ErrorIs(t, err, domainerrors.ErrInvalidDocument)

			view, err := f.wizard.View(f.ctx)
			require.NoError(t, err)
			assert.Nil(t, view.State.Persons[0].Documents.Front)
		})
	}

	_, err = f.wizard.AttachDocument(f.ctx, "missing", entity.DocumentFront, &usecase.DocumentUpload{ContentType: "image/png", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, domainerrors.ErrPersonNotFound)
}

func TestWizardService_AttachDocument_ReplacesPrevious(t *testing.T) {
	f := newWizardFixture(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
	require.NoError(t, err)
	person := f.addPerson(t, "4455667")

	first := f.attach(t, person.Key(), entity.DocumentFront, "first").Documents.Front
	second := f.attach(t, person.Key(), entity.DocumentFront, "second").Documents.Front

	assert.NotEqual(t, first.Key, second.Key)
	assert.Equal(t, "image/jpeg", second.ContentType)
	assert.Equal(t, int64(6), second.Size)

	_, err = f.documents.Open(f.ctx, first.Key)
	require.Error(t, err)
	r, err := f.documents.Open(f.ctx, second.Key)
	require.NoError(t, err)
	require.NoError(t, r.Close())
}

func TestWizardService_CompletenessScenario(t *testing.T) {
	f := newWizardFixture(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
	require.NoError(t, err)

	view, err := f.wizard.View(f.ctx)
	require.NoError(t, err)
	assert.False(t, view.CanFinalize)

	person := f.addCompletePerson(t, "4455667")
	view, err = f.wizard.View(f.ctx)
	require.NoError(t, err)
	assert.True(t, view.Step2.Passed)
	assert.True(t, view.CanFinalize)

	_, err = f.wizard.DetachDocument(f.ctx, person.Key(), entity.DocumentBack)
	require.NoError(t, err)
	view, err = f.wizard.View(f.ctx)
	require.NoError(t, err)
	assert.False(t, view.CanFinalize)
}

func TestWizardService_RemovePersonDeletesDocuments(t *testing.T) {
	f := newWizardFixture(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
	require.NoError(t, err)
	person := f.addCompletePerson(t, "4455667")

	require.NoError(t, f.wizard.RemovePerson(f.ctx, person.Key()))

	view, err := f.wizard.View(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, view.State.Persons)
	_, err = f.documents.Open(f.ctx, person.Documents.Front.Key)
	assert.Error(t, err)

	assert.ErrorIs(t, f.wizard.RemovePerson(f.ctx, person.Key()), domainerrors.ErrPersonNotFound)
}

func TestWizardService_Finalize_Blocked(t *testing.T) {
	f := newWizardFixture(t)
	f.verifyCompany(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(2))
	require.NoError(t, err)
	f.addCompletePerson(t, "1")

	_, err = f.wizard.Finalize(f.ctx)
	assert.ErrorIs(t, err, domainerrors.ErrStepNotAllowed)
	f.registry.AssertNotCalled(t, "RegisterExam", mock.Anything, mock.Anything)
}

func TestWizardService_Finalize_RequiresCachedCompany(t *testing.T) {
	f := newWizardFixture(t)
	f.verifyCompany(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
	require.NoError(t, err)
	f.addCompletePerson(t, "1")

	f.clock.Advance(time.Hour)
	_, err = f.wizard.Finalize(f.ctx)
	assert.ErrorIs(t, err, domainerrors.ErrCompanyNotVerified)
}

func TestWizardService_Finalize_Success(t *testing.T) {
	f := newWizardFixture(t)
	f.verifyCompany(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
	require.NoError(t, err)
	person := f.addCompletePerson(t, "4455667")

	f.registry.On("RegisterExam", mock.Anything, mock.MatchedBy(func(reg *service.ExamRegistration) bool {
		return reg.NumeroPatronal == "01-123-4567" && len(reg.Persons) == 1 && reg.Receipt.ReceiptNumber == "123456"
	})).Return("EX-9", nil).Once()
	f.registry.On("UploadDocument", mock.Anything, mock.MatchedBy(func(u *service.DocumentUpload) bool {
		return u.ExamID == "EX-9" && u.DocumentType == constants.DocumentTypeIDFront && u.Notes == "CI 4455667 - Ana Quispe"
	})).Return(nil).Once()
	f.registry.On("UploadDocument", mock.Anything, mock.MatchedBy(func(u *service.DocumentUpload) bool {
		return u.ExamID == "EX-9" && u.DocumentType == constants.DocumentTypeIDBack
	})).Return(nil).Once()
	f.publisher.On("PublishEvent", mock.Anything, mock.MatchedBy(func(e *service.DomainEvent) bool {
		return e.Type == service.EventExamRegistered && e.Attributes["exam_id"] == "EX-9" &&
			e.Attributes["company_name"] == "Minera Andina SRL" && e.AccessCode == testCode
	})).Return(nil).Once()

	result, err := f.wizard.Finalize(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "EX-9", result.ExamID)
	assert.Equal(t, 2, result.UploadedDocuments)

	assert.Nil(t, f.session.Current())
	view, err := f.wizard.View(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, view.State.Persons)
	assert.Nil(t, view.State.Receipt)
	_, err = f.documents.Open(f.ctx, person.Documents.Front.Key)
	assert.Error(t, err)
}

type removeFailingStore struct {
	repository.SlotStore
	key string
}

func (s *removeFailingStore) Remove(ctx context.Context, key string) error {
	if key == s.key {
		return assert.AnError
	}

	return s.SlotStore.Remove(ctx, key)
}

func TestWizardService_Finalize_CleanupFailureKeepsResult(t *testing.T) {
	f := newWizardFixture(t)
	f.wizard = NewWizardService("client-1", &removeFailingStore{SlotStore: f.store, key: repository.SlotExamWizard},
		f.session, f.company, WizardDependencies{
			Insured:             f.insured,
			Registry:            f.registry,
			Documents:           f.documents,
			Publisher:           f.publisher,
			Clock:               f.clock,
			Logger:              newDiscardLogger(),
			MaxInsured:          5,
			MaxDocumentBytes:    16,
			AllowedContentTypes: []string{"image/jpeg"},
		})
	f.verifyCompany(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
	require.NoError(t, err)
	f.addCompletePerson(t, "4455667")

	f.registry.On("RegisterExam", mock.Anything, mock.Anything).Return("EX-11", nil).Once()
	f.registry.On("UploadDocument", mock.Anything, mock.Anything).Return(nil).Twice()
	f.publisher.On("PublishEvent", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.wizard.Finalize(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "EX-11", result.ExamID)
	assert.Equal(t, 2, result.UploadedDocuments)
	assert.Nil(t, f.session.Current())
}

func TestWizardService_Finalize_ResumesAfterUploadFailure(t *testing.T) {
	f := newWizardFixture(t)
	f.verifyCompany(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
	require.NoError(t, err)
	f.addCompletePerson(t, "4455667")

	isFront := mock.MatchedBy(func(u *service.DocumentUpload) bool { return u.DocumentType == constants.DocumentTypeIDFront })
	isBack := mock.MatchedBy(func(u *service.DocumentUpload) bool { return u.DocumentType == constants.DocumentTypeIDBack })

	f.registry.On("RegisterExam", mock.Anything, mock.Anything).Return("EX-10", nil).Once()
	f.registry.On("UploadDocument", mock.Anything, isFront).Return(nil).Once()
	f.registry.On("UploadDocument", mock.Anything, isBack).Return(domainerrors.ErrUpstreamUnavailable).Once()

	_, err = f.wizard.Finalize(f.ctx)
	assert.ErrorIs(t, err, domainerrors.ErrUpstreamUnavailable)

	view, err := f.wizard.View(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "EX-10", view.State.RegisteredExamID)
	assert.True(t, view.State.Persons[0].Documents.Front.Uploaded)
	assert.False(t, view.State.Persons[0].Documents.Back.Uploaded)
	assert.NotNil(t, f.session.Current())

	_, err = f.wizard.AddPerson(f.ctx, &usecase.NewPerson{NationalID: "1", FullName: "X", BirthDate: "1990-01-01"})
	assert.ErrorIs(t, err, domainerrors.ErrStepNotAllowed)

	f.registry.On("UploadDocument", mock.Anything, isBack).Return(nil).Once()
	f.publisher.On("PublishEvent", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.wizard.Finalize(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "EX-10", result.ExamID)
	assert.Equal(t, 1, result.UploadedDocuments)
	f.registry.AssertNumberOfCalls(t, "RegisterExam", 1)
}

func TestWizardService_Reset(t *testing.T) {
	f := newWizardFixture(t)
	_, err := f.wizard.SetReceipt(f.ctx, validReceipt(1))
	require.NoError(t, err)
	person := f.addCompletePerson(t, "4455667")

	require.NoError(t, f.wizard.Reset(f.ctx))

	view, err := f.wizard.View(f.ctx)
	require.NoError(t, err)
	assert.Nil(t, view.State.Receipt)
	_, err = f.documents.Open(f.ctx, person.Documents.Back.Key)
	assert.Error(t, err)
}
