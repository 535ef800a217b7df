package impl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"slices"
	"strconv"
	"strings"
	"time"

	deliverycontext "citas/internal/delivery/context"
	"citas/internal/domain/constants"
	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/repository"
	"citas/internal/domain/service"
	"citas/internal/usecase"
	"citas/internal/util"

	"github.com/google/uuid"
)

// WizardDependencies are the collaborators shared by every client's wizard.
type WizardDependencies struct {
	Insured             service.InsuredLookup
	Registry            service.ExamRegistry
	Documents           service.DocumentStore
	Publisher           service.EventPublisher
	Clock               service.Clock
	Logger              *slog.Logger
	MaxInsured          int
	MaxDocumentBytes    int64
	AllowedContentTypes []string
}

type wizardService struct {
	clientID string
	store    repository.SlotStore
	session  usecase.SessionUsecase
	company  usecase.CompanyCacheUsecase
	deps     WizardDependencies
	newID    func() string
}

// NewWizardService creates the exam wizard of one client.
func NewWizardService(clientID string, store repository.SlotStore, session usecase.SessionUsecase, company usecase.CompanyCacheUsecase, deps WizardDependencies) usecase.WizardUsecase {
	return &wizardService{
		clientID: clientID,
		store:    store,
		session:  session,
		company:  company,
		deps:     deps,
		newID:    uuid.NewString,
	}
}

func (s *wizardService) logger(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, s.deps.Logger)
}

func (s *wizardService) load(ctx context.Context) (*entity.WizardState, error) {
	state := &entity.WizardState{}
	found, err := s.store.Get(ctx, repository.SlotExamWizard, state)
	if err != nil {
		return nil, domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}
	if !found {
		state = &entity.WizardState{}
	}
	if state.Step < 1 {
		state.Step = 1
	}
	if state.Persons == nil {
		state.Persons = []*entity.InsuredPerson{}
	}

	return state, nil
}

func (s *wizardService) save(ctx context.Context, state *entity.WizardState) error {
	state.UpdatedAt = s.deps.Clock.Now()
	if err := s.store.Set(ctx, repository.SlotExamWizard, state); err != nil {
		return domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}

	return nil
}

func view(state *entity.WizardState) *usecase.WizardView {
	return &usecase.WizardView{
		State:       state,
		Step1:       EvaluateStep1(state),
		Step2:       EvaluateStep2(state),
		CanFinalize: CanFinalize(state),
	}
}

func (s *wizardService) View(ctx context.Context) (*usecase.WizardView, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	return view(state), nil
}

func (s *wizardService) SetReceipt(ctx context.Context, receipt *entity.ReceiptData) (*usecase.WizardView, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if state.RegisteredExamID != "" {
		return nil, domainerrors.ErrStepNotAllowed.WithDetails("la solicitud ya fue registrada, finalice el envío de documentos")
	}

	r := *receipt
	r.ReceiptNumber = strings.TrimSpace(r.ReceiptNumber)
	r.EmployerEmail = strings.TrimSpace(r.EmployerEmail)
	r.EmployerPhone = strings.TrimSpace(r.EmployerPhone)
	r.Notes = strings.TrimSpace(r.Notes)
	state.Receipt = &r

	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	return view(state), nil
}

func (s *wizardService) LookupPerson(ctx context.Context, nationalID, birthDate string) (*entity.InsuredPerson, error) {
	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("el número de carnet es obligatorio")
	}
	if _, err := time.Parse(time.DateOnly, birthDate); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails("la fecha de nacimiento debe tener el formato AAAA-MM-DD")
	}

	record, err := s.deps.Insured.FindInsured(ctx, nationalID, birthDate)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domainerrors.ErrInsuredNotFound
	}

	person := &entity.InsuredPerson{
		InsuredID:    record.InsuredID,
		NationalID:   record.NationalID,
		FullName:     record.FullName,
		BirthDate:    record.BirthDate,
		Gender:       record.Gender,
		Email:        record.Email,
		Phone:        record.Phone,
		CompanyName:  record.CompanyName,
		CompanyTaxID: record.CompanyTaxID,
	}
	if person.NationalID == "" {
		person.NationalID = nationalID
	}
	if person.BirthDate == "" {
		person.BirthDate = birthDate
	}

	return person, nil
}

func (s *wizardService) AddPerson(ctx context.Context, input *usecase.NewPerson) (*entity.InsuredPerson, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(state); err != nil {
		return nil, err
	}
	if gate := EvaluateStep1(state); !gate.Passed && !onlyExcess(gate) {
		return nil, domainerrors.ErrStepNotAllowed.WithDetails(joinViolations(gate.Violations))
	}
	if s.deps.MaxInsured > 0 && len(state.Persons) >= s.deps.MaxInsured {
		return nil, domainerrors.ErrValidationFailed.WithDetails(
			fmt.Sprintf("se admite un máximo de %d asegurados por solicitud", s.deps.MaxInsured))
	}
	if len(state.Persons) >= state.Receipt.InsuredCount {
		return nil, domainerrors.ErrStepNotAllowed.WithDetails(
			fmt.Sprintf("ya se registraron los %d asegurado(s) declarados en el comprobante", state.Receipt.InsuredCount))
	}

	nationalID := strings.TrimSpace(input.NationalID)
	if state.HasNationalID(nationalID) {
		s.logger(ctx).InfoContext(ctx, "Duplicate insured rejected", slog.String("nationalId", nationalID))

		return nil, domainerrors.ErrDuplicateInsured.WithDetails("CI " + nationalID)
	}

	person := &entity.InsuredPerson{
		InsuredID:    input.InsuredID,
		NationalID:   nationalID,
		FullName:     strings.TrimSpace(input.FullName),
		BirthDate:    input.BirthDate,
		Gender:       strings.TrimSpace(input.Gender),
		Email:        strings.TrimSpace(input.Email),
		Phone:        strings.TrimSpace(input.Phone),
		CompanyName:  strings.TrimSpace(input.CompanyName),
		CompanyTaxID: strings.TrimSpace(input.CompanyTaxID),
	}
	if person.InsuredID == 0 {
		person.TemporaryID = s.newID()
	} else if existing, _ := state.FindPerson(person.Key()); existing != nil {
		return nil, domainerrors.ErrDuplicateInsured.WithDetails("asegurado " + person.Key())
	}

	state.Persons = append(state.Persons, person)
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	return person, nil
}

func (s *wizardService) UpdatePersonContact(ctx context.Context, personKey string, contact *usecase.PersonContact) (*entity.InsuredPerson, error) {
	state, person, err := s.loadPerson(ctx, personKey)
	if err != nil {
		return nil, err
	}

	person.Email = strings.TrimSpace(contact.Email)
	person.Phone = strings.TrimSpace(contact.Phone)

	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	return person, nil
}

func (s *wizardService) RemovePerson(ctx context.Context, personKey string) error {
	state, person, err := s.loadPerson(ctx, personKey)
	if err != nil {
		return err
	}

	s.deleteDocuments(ctx, person)
	_, idx := state.FindPerson(personKey)
	state.Persons = slices.Delete(state.Persons, idx, idx+1)

	return s.save(ctx, state)
}

func (s *wizardService) AttachDocument(ctx context.Context, personKey string, side entity.DocumentSide, upload *usecase.DocumentUpload) (*entity.InsuredPerson, error) {
	state, person, err := s.loadPerson(ctx, personKey)
	if err != nil {
		return nil, err
	}

	contentType, err := s.checkDocument(upload)
	if err != nil {
		return nil, err
	}

	key := s.documentKey(person, side)
	previous := person.Documents.Slot(side)
	limited := io.LimitReader(upload.Content, s.deps.MaxDocumentBytes+1)
	size, err := s.deps.Documents.Put(ctx, key, contentType, limited)
	if err != nil {
		return nil, domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}
	if size == 0 || size > s.deps.MaxDocumentBytes {
		if delErr := s.deps.Documents.Delete(ctx, key); delErr != nil {
			s.logger(ctx).WarnContext(ctx, "Failed to delete rejected document", slog.String("key", key), slog.Any("error", delErr))
		}
		if size == 0 {
			return nil, domainerrors.ErrInvalidDocument.WithDetails("el archivo está vacío")
		}

		return nil, domainerrors.ErrInvalidDocument.WithDetails(
			fmt.Sprintf("el archivo supera el máximo de %s", util.FormatBytes(s.deps.MaxDocumentBytes)))
	}

	person.Documents.SetSlot(side, &entity.DocumentFile{
		Key:         key,
		FileName:    upload.FileName,
		ContentType: contentType,
		Size:        size,
	})

	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	if previous != nil {
		if err := s.deps.Documents.Delete(ctx, previous.Key); err != nil {
			s.logger(ctx).WarnContext(ctx, "Failed to delete replaced document", slog.String("key", previous.Key), slog.Any("error", err))
		}
	}

	s.logger(ctx).DebugContext(ctx, "Document attached",
		slog.String("person", person.Key()),
		slog.String("side", string(side)),
		slog.String("size", util.FormatBytes(size)),
	)

	return person, nil
}

func (s *wizardService) DetachDocument(ctx context.Context, personKey string, side entity.DocumentSide) (*entity.InsuredPerson, error) {
	state, person, err := s.loadPerson(ctx, personKey)
	if err != nil {
		return nil, err
	}

	file := person.Documents.Slot(side)
	if file == nil {
		return person, nil
	}
	if err := s.deps.Documents.Delete(ctx, file.Key); err != nil {
		return nil, domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}
	person.Documents.SetSlot(side, nil)

	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	return person, nil
}

func (s *wizardService) Advance(ctx context.Context, step int) (*usecase.WizardView, error) {
	if step < 1 || step > 2 {
		return nil, domainerrors.ErrValidationFailed.WithDetails("el paso debe ser 1 o 2; use finalizar para enviar la solicitud")
	}

	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if step == 2 {
		if gate := EvaluateStep1(state); !gate.Passed {
			return nil, domainerrors.ErrStepNotAllowed.WithDetails(joinViolations(gate.Violations))
		}
	}

	state.Step = step
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	patch := map[string]any{"wizardStep": step}
	if state.Receipt != nil {
		patch["insuredCount"] = state.Receipt.InsuredCount
	}
	if err := s.session.UpdateStep(ctx, entity.StepExamForm, patch); err != nil {
		return nil, err
	}

	return view(state), nil
}

func (s *wizardService) Finalize(ctx context.Context) (*usecase.FinalizeResult, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	step1, step2 := EvaluateStep1(state), EvaluateStep2(state)
	if !step1.Passed || !step2.Passed {
		return nil, domainerrors.ErrStepNotAllowed.WithDetails(
			joinViolations(append(step1.Violations, step2.Violations...)))
	}

	company, err := s.company.Get(ctx)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domainerrors.ErrCompanyNotVerified
	}

	logger := s.logger(ctx)

	if state.RegisteredExamID == "" {
		examID, err := s.deps.Registry.RegisterExam(ctx, &service.ExamRegistration{
			NumeroPatronal: company.NumeroPatronal,
			CompanyName:    company.RazonSocial,
			TaxID:          company.NIT,
			Notes:          state.Receipt.Notes,
			Receipt:        *state.Receipt,
			Persons:        state.Persons,
		})
		if err != nil {
			logger.WarnContext(ctx, "Exam registration failed", slog.Any("error", err))

			return nil, err
		}

		state.RegisteredExamID = examID
		if err := s.save(ctx, state); err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "Exam registered", slog.String("examId", examID))
	} else {
		logger.InfoContext(ctx, "Resuming document upload", slog.String("examId", state.RegisteredExamID))
	}

	uploaded, err := s.uploadPending(ctx, state)
	if err != nil {
		if saveErr := s.save(ctx, state); saveErr != nil {
			logger.ErrorContext(ctx, "Failed to record upload progress", slog.Any("error", saveErr))
		}

		return nil, err
	}

	result := &usecase.FinalizeResult{
		ExamID:            state.RegisteredExamID,
		UploadedDocuments: uploaded,
	}

	accessCode := ""
	if current := s.session.Current(); current != nil {
		accessCode = current.ID
	}

	// The exam is registered upstream; cleanup failures are only logged.
	if err := s.session.Clear(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to clear session after finalize",
			slog.String("examId", result.ExamID), slog.Any("error", err))
	}
	for _, person := range state.Persons {
		s.deleteDocuments(ctx, person)
	}
	if err := s.store.Remove(ctx, repository.SlotExamWizard); err != nil {
		logger.ErrorContext(ctx, "Failed to clear wizard after finalize",
			slog.String("examId", result.ExamID), slog.Any("error", err))
	}

	s.announce(ctx, state, company, accessCode)

	return result, nil
}

func (s *wizardService) Reset(ctx context.Context) error {
	state, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, person := range state.Persons {
		s.deleteDocuments(ctx, person)
	}
	if err := s.store.Remove(ctx, repository.SlotExamWizard); err != nil {
		return domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}

	return nil
}

// uploadPending sends every document not yet accepted by the upload API, marking each one as it succeeds.
func (s *wizardService) uploadPending(ctx context.Context, state *entity.WizardState) (int, error) {
	count := 0
	for _, person := range state.Persons {
		for _, side := range []entity.DocumentSide{entity.DocumentFront, entity.DocumentBack} {
			file := person.Documents.Slot(side)
			if file == nil || file.Uploaded {
				continue
			}

			if err := s.uploadOne(ctx, state.RegisteredExamID, person, side, file); err != nil {
				s.logger(ctx).WarnContext(ctx, "Document upload failed",
					slog.String("examId", state.RegisteredExamID),
					slog.String("person", person.Key()),
					slog.String("side", string(side)),
					slog.Any("error", err),
				)

				return count, err
			}
			file.Uploaded = true
			count++
		}
	}

	return count, nil
}

func (s *wizardService) uploadOne(ctx context.Context, examID string, person *entity.InsuredPerson, side entity.DocumentSide, file *entity.DocumentFile) error {
	content, err := s.deps.Documents.Open(ctx, file.Key)
	if err != nil {
		return domainerrors.ErrStorageFailed.WrapMessage(err.Error())
	}
	defer content.Close()

	return s.deps.Registry.UploadDocument(ctx, &service.DocumentUpload{
		ExamID:       examID,
		DocumentType: documentType(side),
		Notes:        fmt.Sprintf("CI %s - %s", person.NationalID, person.FullName),
		FileName:     file.FileName,
		ContentType:  file.ContentType,
		Content:      content,
	})
}

// announce publishes the registration. A publish failure is logged only.
func (s *wizardService) announce(ctx context.Context, state *entity.WizardState, company *entity.VerifiedCompany, accessCode string) {
	event := &service.DomainEvent{
		ID:         s.newID(),
		Type:       service.EventExamRegistered,
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		ClientID:   s.clientID,
		AccessCode: accessCode,
		Attributes: map[string]string{
			"exam_id":         state.RegisteredExamID,
			"numero_patronal": company.NumeroPatronal,
			"company_name":    company.RazonSocial,
			"persons":         strconv.Itoa(len(state.Persons)),
		},
		OccurredAt: s.deps.Clock.Now(),
	}
	if err := s.deps.Publisher.PublishEvent(ctx, event); err != nil {
		s.logger(ctx).WarnContext(ctx, "Failed to publish exam event", slog.Any("error", err))
	}
}

func (s *wizardService) loadPerson(ctx context.Context, personKey string) (*entity.WizardState, *entity.InsuredPerson, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireEditable(state); err != nil {
		return nil, nil, err
	}
	person, _ := state.FindPerson(personKey)
	if person == nil {
		return nil, nil, domainerrors.ErrPersonNotFound
	}

	return state, person, nil
}

// requireEditable blocks changes to persons once the request was registered upstream.
func (s *wizardService) requireEditable(state *entity.WizardState) error {
	if state.RegisteredExamID != "" {
		return domainerrors.ErrStepNotAllowed.WithDetails("la solicitud ya fue registrada, finalice el envío de documentos")
	}

	return nil
}

func (s *wizardService) checkDocument(upload *usecase.DocumentUpload) (string, error) {
	mediaType, _, err := mime.ParseMediaType(upload.ContentType)
	if err != nil {
		return "", domainerrors.ErrInvalidDocument.WithDetails("tipo de archivo desconocido")
	}
	mediaType = strings.ToLower(mediaType)
	if !slices.Contains(s.deps.AllowedContentTypes, mediaType) {
		return "", domainerrors.ErrInvalidDocument.WithDetails(
			fmt.Sprintf("tipo %s no permitido, use %s", mediaType, strings.Join(s.deps.AllowedContentTypes, ", ")))
	}
	if upload.Size > s.deps.MaxDocumentBytes {
		return "", domainerrors.ErrInvalidDocument.WithDetails(
			fmt.Sprintf("el archivo pesa %s y el máximo es %s", util.FormatBytes(upload.Size), util.FormatBytes(s.deps.MaxDocumentBytes)))
	}

	return mediaType, nil
}

// documentKey is unique per upload so a rejected replacement never touches the staged file.
func (s *wizardService) documentKey(person *entity.InsuredPerson, side entity.DocumentSide) string {
	return s.clientID + "/" + person.Key() + "/" + string(side) + "/" + s.newID()
}

func (s *wizardService) deleteDocuments(ctx context.Context, person *entity.InsuredPerson) {
	for _, file := range []*entity.DocumentFile{person.Documents.Front, person.Documents.Back} {
		if file == nil {
			continue
		}
		if err := s.deps.Documents.Delete(ctx, file.Key); err != nil {
			s.logger(ctx).WarnContext(ctx, "Failed to delete staged document", slog.String("key", file.Key), slog.Any("error", err))
		}
	}
}

func documentType(side entity.DocumentSide) string {
	if side == entity.DocumentBack {
		return constants.DocumentTypeIDBack
	}

	return constants.DocumentTypeIDFront
}

// onlyExcess reports whether every violation is about persons beyond the declared count.
func onlyExcess(gate usecase.GateResult) bool {
	for _, v := range gate.Violations {
		if v.Code != ViolationExcessPersons {
			return false
		}
	}

	return true
}

func joinViolations(violations []usecase.Violation) string {
	messages := make([]string, 0, len(violations))
	for _, v := range violations {
		messages = append(messages, v.Message)
	}

	return strings.Join(messages, "; ")
}
