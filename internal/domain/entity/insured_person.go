package entity

import "strings"

// DocumentSide identifies one of the two document slots of an insured person.
type DocumentSide string

const (
	DocumentFront DocumentSide = "front"
	DocumentBack  DocumentSide = "back"
)

// ParseDocumentSide converts a raw value into a DocumentSide.
func ParseDocumentSide(raw string) (DocumentSide, bool) {
	switch DocumentSide(strings.ToLower(strings.TrimSpace(raw))) {
	case DocumentFront:
		return DocumentFront, true
	case DocumentBack:
		return DocumentBack, true
	default:
		return "", false
	}
}

// DocumentFile references a staged upload held in the document store.
type DocumentFile struct {
	Key         string `json:"key"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Uploaded    bool   `json:"uploaded"` // already sent to the document upload API
}

// DocumentPair holds the front and back images of a person's identity document.
type DocumentPair struct {
	Front *DocumentFile `json:"front"`
	Back  *DocumentFile `json:"back"`
}

// IsComplete reports whether both slots are populated.
func (d DocumentPair) IsComplete() bool {
	return d.Front != nil && d.Back != nil
}

// Slot returns the file in the given slot.
func (d DocumentPair) Slot(side DocumentSide) *DocumentFile {
	if side == DocumentBack {
		return d.Back
	}

	return d.Front
}

// SetSlot replaces the file in the given slot.
func (d *DocumentPair) SetSlot(side DocumentSide, file *DocumentFile) {
	if side == DocumentBack {
		d.Back = file
	} else {
		d.Front = file
	}
}

// InsuredPerson is an employee collected by the exam wizard.
type InsuredPerson struct {
	// TemporaryID is assigned when the permanent insured id is unknown or zero.
	TemporaryID  string       `json:"temporaryId,omitempty"`
	InsuredID    int64        `json:"insuredId,omitempty"`
	NationalID   string       `json:"nationalId"`
	FullName     string       `json:"fullName"`
	BirthDate    string       `json:"birthDate"` // YYYY-MM-DD
	Gender       string       `json:"gender"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	CompanyName  string       `json:"companyName"`
	CompanyTaxID string       `json:"companyTaxId"`
	Documents    DocumentPair `json:"documents"`
}

// Key is the identifier the person and its documents are keyed by.
func (p *InsuredPerson) Key() string {
	if p.TemporaryID != "" {
		return p.TemporaryID
	}

	return formatInsuredID(p.InsuredID)
}

// IsComplete reports whether both contact fields are set and both documents are attached.
func (p *InsuredPerson) IsComplete() bool {
	return strings.TrimSpace(p.Email) != "" &&
		strings.TrimSpace(p.Phone) != "" &&
		p.Documents.IsComplete()
}
