package remoteapi

import (
	"strings"
	"unicode"

	"citas/internal/domain/service"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// fieldAliases maps each canonical field to the names the upstream API is known
// to use for it, in priority order.
type fieldAliases []struct {
	canonical string
	aliases   []string
}

//nolint:gochecknoglobals
var companyAliases = fieldAliases{
	{"id", []string{"id", "idEmpresa", "empresaId", "companyId"}},
	{"razonSocial", []string{"razonSocial", "razon_social", "nombreEmpresa", "empresa", "companyName", "nombre", "name"}},
	{"nit", []string{"nit", "NIT", "ruc", "RUC", "taxId", "nitEmpresa"}},
	{"numeroPatronal", []string{"numeroPatronal", "numero_patronal", "nroPatronal", "patronal", "employerNumber"}},
	{"estado", []string{"estado", "estadoEmpresa", "status", "state"}},
}

//nolint:gochecknoglobals
var insuredAliases = fieldAliases{
	{"insuredId", []string{"insuredId", "idAsegurado", "aseguradoId", "id"}},
	{"nationalId", []string{"nationalId", "ci", "carnet", "numeroDocumento", "documento"}},
	{"fullName", []string{"fullName", "nombreCompleto", "nombre_completo"}},
	{"birthDate", []string{"birthDate", "fechaNacimiento", "fecha_nacimiento"}},
	{"gender", []string{"gender", "sexo", "genero"}},
	{"email", []string{"email", "correo", "correoElectronico"}},
	{"phone", []string{"phone", "telefono", "celular"}},
	{"companyName", []string{"companyName", "razonSocial", "empresa"}},
	{"companyTaxId", []string{"companyTaxId", "nit", "NIT", "ruc"}},
}

//nolint:gochecknoglobals
var examAliases = fieldAliases{
	{"id", []string{"id", "idExamen", "examenId", "examId"}},
	{"numeroPatronal", []string{"numeroPatronal", "numero_patronal", "nroPatronal"}},
	{"companyName", []string{"companyName", "razonSocial", "empresa"}},
	{"taxId", []string{"taxId", "nit", "NIT", "ruc"}},
	{"notes", []string{"notes", "observaciones"}},
	{"status", []string{"status", "estado"}},
	{"reviewNotes", []string{"reviewNotes", "observacionRevision", "motivo"}},
	{"createdAt", []string{"createdAt", "fechaRegistro", "fecha_registro"}},
}

// normalizeRecord maps every known alias in raw onto its canonical key.
// Keys are compared ignoring case and separators; the first alias present wins.
func normalizeRecord(raw map[string]any, aliases fieldAliases) map[string]any {
	byToken := make(map[string]any, len(raw))
	for key, value := range raw {
		token := normalizeToken(key)
		if _, exists := byToken[token]; !exists || key == token {
			byToken[token] = value
		}
	}

	out := make(map[string]any, len(aliases))
	for _, field := range aliases {
		for _, alias := range field.aliases {
			if value, ok := byToken[normalizeToken(alias)]; ok && value != nil {
				out[field.canonical] = value

				break
			}
		}
	}

	return out
}

// unwrapRecord returns the first object in a payload that may be a bare object,
// an array, or an envelope such as {"data": ...}. A nil result means "no record".
func unwrapRecord(payload any) map[string]any {
	switch v := payload.(type) {
	case map[string]any:
		for _, envelope := range []string{"data", "result", "resultado"} {
			if inner, ok := v[envelope]; ok {
				return unwrapRecord(inner)
			}
		}
		if len(v) == 0 {
			return nil
		}

		return v
	case []any:
		if len(v) == 0 {
			return nil
		}

		return unwrapRecord(v[0])
	default:
		return nil
	}
}

// unwrapList returns every object in a payload that may be an array or an envelope.
func unwrapList(payload any) []map[string]any {
	switch v := payload.(type) {
	case map[string]any:
		for _, envelope := range []string{"data", "result", "resultado", "items"} {
			if inner, ok := v[envelope]; ok {
				return unwrapList(inner)
			}
		}
		if len(v) == 0 {
			return nil
		}

		return []map[string]any{v}
	case []any:
		records := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if record, ok := item.(map[string]any); ok {
				records = append(records, record)
			}
		}

		return records
	default:
		return nil
	}
}

func decodeCompany(payload any) (*service.CompanyRecord, error) {
	raw := unwrapRecord(payload)
	if raw == nil {
		return nil, nil
	}

	var record service.CompanyRecord
	if err := mapstructure.WeakDecode(normalizeRecord(raw, companyAliases), &record); err != nil {
		return nil, errors.Wrap(err, "decode company record")
	}
	if record.RazonSocial == "" && record.NumeroPatronal == "" {
		return nil, nil
	}

	return &record, nil
}

func decodeInsured(payload any) (*service.InsuredRecord, error) {
	raw := unwrapRecord(payload)
	if raw == nil {
		return nil, nil
	}

	normalized := normalizeRecord(raw, insuredAliases)
	if _, ok := normalized["fullName"]; !ok {
		if name := composeName(raw); name != "" {
			normalized["fullName"] = name
		}
	}

	var record service.InsuredRecord
	if err := mapstructure.WeakDecode(normalized, &record); err != nil {
		return nil, errors.Wrap(err, "decode insured record")
	}
	if record.NationalID == "" && record.FullName == "" {
		return nil, nil
	}
	if len(record.BirthDate) > len("2006-01-02") {
		record.BirthDate = record.BirthDate[:len("2006-01-02")]
	}

	return &record, nil
}

// composeName joins split name fields (nombres, apellidoPaterno, apellidoMaterno).
func composeName(raw map[string]any) string {
	byToken := make(map[string]any, len(raw))
	for key, value := range raw {
		byToken[normalizeToken(key)] = value
	}

	parts := make([]string, 0, 3)
	for _, key := range []string{"nombres", "nombre", "apellidopaterno", "apellidomaterno"} {
		if s, ok := byToken[key].(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}

	return strings.Join(parts, " ")
}

func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}
