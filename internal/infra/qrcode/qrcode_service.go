package qrcode

import (
	"encoding/json"
	"net/url"
	"strings"

	"citas/internal/domain/accesscode"
	"citas/internal/domain/service"
	"citas/internal/errors"

	"github.com/skip2/go-qrcode"
)

const accessQRType = "exam_access"

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
	resumeURL            string
}

// QRCodeData represents the QR code data structure
type QRCodeData struct {
	AccessCode string `json:"access_code"`
	Type       string `json:"type"`
	ResumeURL  string `json:"resume_url,omitempty"`
}

// NewQRCodeService creates a new QR code service instance. resumeURL is the front-end
// page that accepts a ?code= query parameter; it may be empty.
func NewQRCodeService(size int, errorCorrectionLevel, resumeURL string) service.QRCodeService {
	// Set error correction level
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
		resumeURL:            resumeURL,
	}
}

// GenerateAccessQR generates a QR code that carries the access code and resume link
func (s *qrcodeService) GenerateAccessQR(code string) ([]byte, error) {
	if !accesscode.IsValid(code) {
		return nil, errors.Errorf("invalid access code: %q", code)
	}
	canonical := accesscode.Canonical(code)

	data := QRCodeData{
		AccessCode: canonical,
		Type:       accessQRType,
		ResumeURL:  s.buildResumeURL(canonical),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal QR code data")
	}

	qrCode, err := qrcode.New(string(jsonData), s.errorCorrectionLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create QR code")
	}

	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate PNG")
	}

	return pngBytes, nil
}

// ParseAccessQR accepts the JSON payload written by GenerateAccessQR, a resume URL,
// or a bare access code.
func (s *qrcodeService) ParseAccessQR(qrData string) (string, error) {
	qrData = strings.TrimSpace(qrData)

	if strings.HasPrefix(qrData, "{") {
		var data QRCodeData
		if err := json.Unmarshal([]byte(qrData), &data); err != nil {
			return "", errors.Wrap(err, "failed to unmarshal QR code data")
		}
		if data.Type != accessQRType {
			return "", errors.Errorf("invalid QR code type: %s", data.Type)
		}

		return validCode(data.AccessCode)
	}

	if u, err := url.Parse(qrData); err == nil && u.Scheme != "" {
		return validCode(u.Query().Get("code"))
	}

	return validCode(qrData)
}

func (s *qrcodeService) buildResumeURL(code string) string {
	if s.resumeURL == "" {
		return ""
	}
	u, err := url.Parse(s.resumeURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()

	return u.String()
}

func validCode(code string) (string, error) {
	if !accesscode.IsValid(code) {
		return "", errors.Errorf("invalid access code in QR data: %q", code)
	}

	return accesscode.Canonical(code), nil
}
