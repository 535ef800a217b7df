package remoteapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"citas/internal/domain/service"
)

// FindCompany looks up an employer by patronal number.
func (c *Client) FindCompany(ctx context.Context, numeroPatronal string) (*service.CompanyRecord, error) {
	var payload any
	found, err := c.doJSON(ctx, http.MethodGet, "empleadores/"+url.PathEscape(strings.TrimSpace(numeroPatronal)), nil, nil, &payload)
	if err != nil || !found {
		return nil, err
	}

	return decodeCompany(payload)
}

// FindInsured looks up an insured person by national id and birth date (YYYY-MM-DD).
func (c *Client) FindInsured(ctx context.Context, nationalID, birthDate string) (*service.InsuredRecord, error) {
	query := url.Values{}
	query.Set("ci", strings.TrimSpace(nationalID))
	query.Set("fechaNacimiento", birthDate)

	var payload any
	found, err := c.doJSON(ctx, http.MethodGet, "asegurados", query, nil, &payload)
	if err != nil || !found {
		return nil, err
	}

	return decodeInsured(payload)
}
