package service

// QRCodeService defines the interface for access-code QR generation and parsing
type QRCodeService interface {
	// GenerateAccessQR renders a PNG QR code that resumes the session identified by code
	GenerateAccessQR(code string) ([]byte, error)

	// ParseAccessQR extracts the access code from scanned QR data
	ParseAccessQR(qrData string) (string, error)
}
