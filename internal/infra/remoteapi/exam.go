package remoteapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"citas/internal/domain/entity"
	domainerrors "citas/internal/domain/errors"
	"citas/internal/domain/service"
	"citas/internal/util"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// Field length limits of the exam registration API.
const (
	maxNationalIDLen = 15
	maxShortFieldLen = 20
	maxNameLen       = 100
	maxNotesLen      = 200
)

type receiptPayload struct {
	Numero             string  `json:"numero"`
	Fecha              string  `json:"fecha"`
	Monto              float64 `json:"monto"`
	CantidadAsegurados int     `json:"cantidadAsegurados"`
	CorreoEmpleador    string  `json:"correoEmpleador,omitempty"`
	TelefonoEmpleador  string  `json:"telefonoEmpleador,omitempty"`
}

type insuredPayload struct {
	IDAsegurado     *int64 `json:"idAsegurado"`
	CI              string `json:"ci"`
	NombreCompleto  string `json:"nombreCompleto"`
	FechaNacimiento string `json:"fechaNacimiento"`
	Sexo            string `json:"sexo,omitempty"`
	Correo          string `json:"correo"`
	Telefono        string `json:"telefono"`
	Empresa         string `json:"empresa,omitempty"`
	NIT             string `json:"nit,omitempty"`
}

type registrationPayload struct {
	NumeroPatronal string           `json:"numeroPatronal"`
	RazonSocial    string           `json:"razonSocial"`
	NIT            string           `json:"nit"`
	Observaciones  string           `json:"observaciones"`
	Recibo         receiptPayload   `json:"recibo"`
	Asegurados     []insuredPayload `json:"asegurados"`
}

type reviewPayload struct {
	Estado        string `json:"estado"`
	Observaciones string `json:"observaciones,omitempty"`
}

type appointmentPayload struct {
	FechaHora     string `json:"fechaHora"`
	Observaciones string `json:"observaciones,omitempty"`
}

// buildRegistrationPayload applies the API's field length limits.
func buildRegistrationPayload(reg *service.ExamRegistration) registrationPayload {
	payload := registrationPayload{
		NumeroPatronal: util.Truncate(reg.NumeroPatronal, maxShortFieldLen),
		RazonSocial:    util.Truncate(reg.CompanyName, maxNameLen),
		NIT:            util.Truncate(reg.TaxID, maxShortFieldLen),
		Observaciones:  util.Truncate(reg.Notes, maxNotesLen),
		Recibo: receiptPayload{
			Numero:             util.Truncate(reg.Receipt.ReceiptNumber, maxShortFieldLen),
			Fecha:              reg.Receipt.ReceiptDate,
			Monto:              reg.Receipt.Amount,
			CantidadAsegurados: reg.Receipt.InsuredCount,
			CorreoEmpleador:    util.Truncate(reg.Receipt.EmployerEmail, maxNameLen),
			TelefonoEmpleador:  util.Truncate(reg.Receipt.EmployerPhone, maxShortFieldLen),
		},
		Asegurados: make([]insuredPayload, 0, len(reg.Persons)),
	}

	for _, person := range reg.Persons {
		item := insuredPayload{
			CI:              util.Truncate(person.NationalID, maxNationalIDLen),
			NombreCompleto:  util.Truncate(person.FullName, maxNameLen),
			FechaNacimiento: person.BirthDate,
			Sexo:            util.Truncate(person.Gender, maxShortFieldLen),
			Correo:          util.Truncate(person.Email, maxNameLen),
			Telefono:        util.Truncate(person.Phone, maxShortFieldLen),
			Empresa:         util.Truncate(person.CompanyName, maxNameLen),
			NIT:             util.Truncate(person.CompanyTaxID, maxShortFieldLen),
		}
		if person.InsuredID > 0 {
			id := person.InsuredID
			item.IDAsegurado = &id
		}
		payload.Asegurados = append(payload.Asegurados, item)
	}

	return payload
}

// RegisterExam submits the exam request and returns the id the API assigned to it.
func (c *Client) RegisterExam(ctx context.Context, reg *service.ExamRegistration) (string, error) {
	var payload any
	found, err := c.doJSON(ctx, http.MethodPost, "examenes", nil, buildRegistrationPayload(reg), &payload)
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `mapstructure:"id"`
	}
	if found {
		if raw := unwrapRecord(payload); raw != nil {
			if err := mapstructure.WeakDecode(normalizeRecord(raw, examAliases), &created); err != nil {
				return "", errors.Wrap(err, "decode registration response")
			}
		}
	}
	if created.ID == "" {
		return "", domainerrors.ErrUpstreamRejected.WithDetails("registration response did not include an id")
	}

	return created.ID, nil
}

// UploadDocument sends one document as multipart/form-data.
func (c *Client) UploadDocument(ctx context.Context, upload *service.DocumentUpload) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("tipoDocumento", upload.DocumentType); err != nil {
		return errors.WithStack(err)
	}
	if err := writer.WriteField("observaciones", util.Truncate(upload.Notes, maxNotesLen)); err != nil {
		return errors.WithStack(err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="archivo"; filename="`+escapeQuotes(upload.FileName)+`"`)
	header.Set("Content-Type", upload.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return errors.Wrap(err, "copy document content")
	}
	if err := writer.Close(); err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.resolve("examenes/"+url.PathEscape(upload.ExamID)+"/documentos", nil), &body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	_, err = c.send(req, nil)

	return err
}

// ListExamRequests returns exam requests, optionally filtered by status.
func (c *Client) ListExamRequests(ctx context.Context, status entity.ExamStatus) ([]*entity.ExamRequest, error) {
	query := url.Values{}
	if status != "" {
		query.Set("estado", string(status))
	}

	var payload any
	found, err := c.doJSON(ctx, http.MethodGet, "examenes", query, nil, &payload)
	if err != nil || !found {
		return []*entity.ExamRequest{}, err
	}

	records := unwrapList(payload)
	requests := make([]*entity.ExamRequest, 0, len(records))
	for _, raw := range records {
		req, err := decodeExamRequest(raw)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, nil
}

// GetExamRequest returns one exam request with its insured persons.
func (c *Client) GetExamRequest(ctx context.Context, examID string) (*entity.ExamRequest, error) {
	var payload any
	found, err := c.doJSON(ctx, http.MethodGet, "examenes/"+url.PathEscape(examID), nil, nil, &payload)
	if err != nil || !found {
		return nil, err
	}

	raw := unwrapRecord(payload)
	if raw == nil {
		return nil, nil
	}

	return decodeExamRequest(raw)
}

// SubmitReview records an administrator decision.
func (c *Client) SubmitReview(ctx context.Context, decision *service.ReviewDecision) error {
	body := reviewPayload{
		Estado:        string(decision.Status),
		Observaciones: util.Truncate(decision.Notes, maxNotesLen),
	}
	_, err := c.doJSON(ctx, http.MethodPost, "examenes/"+url.PathEscape(decision.ExamID)+"/revision", nil, body, nil)

	return err
}

// ScheduleAppointment books the appointment of an approved exam request.
func (c *Client) ScheduleAppointment(ctx context.Context, req *service.AppointmentRequest) error {
	body := appointmentPayload{
		FechaHora:     req.ScheduledAt.Format(time.RFC3339),
		Observaciones: util.Truncate(req.Notes, maxNotesLen),
	}
	_, err := c.doJSON(ctx, http.MethodPost, "examenes/"+url.PathEscape(req.ExamID)+"/cita", nil, body, nil)

	return err
}

type examRecord struct {
	ID             string `mapstructure:"id"`
	NumeroPatronal string `mapstructure:"numeroPatronal"`
	CompanyName    string `mapstructure:"companyName"`
	TaxID          string `mapstructure:"taxId"`
	Notes          string `mapstructure:"notes"`
	Status         string `mapstructure:"status"`
	ReviewNotes    string `mapstructure:"reviewNotes"`
	CreatedAt      string `mapstructure:"createdAt"`
}

func decodeExamRequest(raw map[string]any) (*entity.ExamRequest, error) {
	var record examRecord
	if err := mapstructure.WeakDecode(normalizeRecord(raw, examAliases), &record); err != nil {
		return nil, errors.Wrap(err, "decode exam request")
	}

	req := &entity.ExamRequest{
		ID:             record.ID,
		NumeroPatronal: record.NumeroPatronal,
		CompanyName:    record.CompanyName,
		TaxID:          record.TaxID,
		Notes:          record.Notes,
		Status:         entity.ExamStatus(strings.ToUpper(record.Status)),
		ReviewNotes:    record.ReviewNotes,
		CreatedAt:      parseTimestamp(record.CreatedAt),
	}

	for _, key := range []string{"asegurados", "persons"} {
		list, ok := raw[key].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			insured, err := decodeInsured(item)
			if err != nil {
				return nil, err
			}
			if insured != nil {
				req.Persons = append(req.Persons, personFromRecord(insured))
			}
		}
	}

	if cita, ok := raw["cita"].(map[string]any); ok {
		if at := parseTimestamp(stringValue(cita["fechaHora"])); !at.IsZero() {
			req.Appointment = &entity.Appointment{
				ScheduledAt: at,
				Notes:       stringValue(cita["observaciones"]),
			}
		}
	}

	return req, nil
}

func personFromRecord(r *service.InsuredRecord) *entity.InsuredPerson {
	return &entity.InsuredPerson{
		InsuredID:    r.InsuredID,
		NationalID:   r.NationalID,
		FullName:     r.FullName,
		BirthDate:    r.BirthDate,
		Gender:       r.Gender,
		Email:        r.Email,
		Phone:        r.Phone,
		CompanyName:  r.CompanyName,
		CompanyTaxID: r.CompanyTaxID,
	}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

func stringValue(v any) string {
	s, _ := v.(string)

	return s
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
