package entity

import (
	"strings"
	"time"
)

// VerifiedCompany is an employer record confirmed through the employer lookup API.
type VerifiedCompany struct {
	ID                string    `json:"id"`
	RazonSocial       string    `json:"razonSocial"`
	NIT               string    `json:"nit"`
	NumeroPatronal    string    `json:"numeroPatronal"`
	Estado            string    `json:"estado"`
	Verified          bool      `json:"verified"`
	FechaVerificacion time.Time `json:"fechaVerificacion"`
}

// IsStale reports whether the cache entry is no longer fresh.
// An entry is fresh only while now - FechaVerificacion < ttl.
func (c *VerifiedCompany) IsStale(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.FechaVerificacion) >= ttl
}

// HasActiveStatus reports whether Estado contains any of the accepted markers (case-insensitive).
func (c *VerifiedCompany) HasActiveStatus(markers []string) bool {
	status := strings.ToLower(c.Estado)
	for _, marker := range markers {
		if marker != "" && strings.Contains(status, strings.ToLower(marker)) {
			return true
		}
	}

	return false
}
