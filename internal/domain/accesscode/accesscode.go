// Package accesscode generates and normalizes the human-entered access codes
// that identify a resumable exam session (EXM-XXXX-XXXX-XXXX).
package accesscode

import (
	"crypto/rand"
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Prefix is the fixed leading group of every access code.
	Prefix = "EXM"
	// Length is the length of a complete code including hyphens.
	Length = 18

	groupSize  = 4
	groupCount = 3
	bodyLength = groupSize * groupCount
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// maxUnbiased is the largest multiple of len(alphabet) that fits in a byte.
	maxUnbiased = 252
)

var strictPattern = regexp.MustCompile(`^EXM-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Generate returns a new random access code.
func Generate() string {
	code, err := GenerateFrom(rand.Reader)
	if err != nil {
		// crypto/rand.Reader does not fail on supported platforms.
		panic(err)
	}

	return code
}

// GenerateFrom builds an access code from the given randomness source.
func GenerateFrom(src io.Reader) (string, error) {
	body := make([]byte, 0, bodyLength)
	buf := make([]byte, bodyLength)

	for len(body) < bodyLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", errors.Wrap(err, "read random bytes")
		}
		for _, b := range buf {
			if b >= maxUnbiased {
				continue
			}
			body = append(body, alphabet[int(b)%len(alphabet)])
			if len(body) == bodyLength {
				break
			}
		}
	}

	return format(string(body)), nil
}

// IsValid reports whether code strictly matches the access code format.
// Matching is case-insensitive.
func IsValid(code string) bool {
	return strictPattern.MatchString(strings.ToUpper(code))
}

// Canonical uppercases a code for storage and comparison.
func Canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeKeystroke canonicalizes a partially typed code. It uppercases,
// drops characters outside [A-Z0-9-], places hyphens after the prefix and
// each complete group, and caps the result at Length characters.
// Applying it to its own output returns the same output.
func NormalizeKeystroke(raw string) string {
	upper := strings.ToUpper(raw)

	chars := make([]byte, 0, len(upper))
	for i := 0; i < len(upper); i++ {
		if isAlnum(upper[i]) {
			chars = append(chars, upper[i])
		}
	}
	if len(chars) > len(Prefix)+bodyLength {
		chars = chars[:len(Prefix)+bodyLength]
	}

	var out strings.Builder
	out.Grow(Length)
	for i, c := range chars {
		if isBoundary(i) {
			out.WriteByte('-')
		}
		out.WriteByte(c)
	}

	// Keep a hyphen typed right at a group boundary so the field does not swallow it.
	if strings.HasSuffix(upper, "-") && len(chars) < len(Prefix)+bodyLength && isBoundary(len(chars)) {
		out.WriteByte('-')
	}

	return out.String()
}

// RepairOnBlur turns raw into a well-formed code when it does not already match
// the strict format. The repair is lossy: it strips every non-alphanumeric
// character, drops a leading "EXM", keeps the first 12 characters and right-pads
// with '0'. The result may differ from the code the user meant, so altered
// reports whether characters were dropped or padded.
func RepairOnBlur(raw string) (code string, altered bool) {
	if IsValid(raw) {
		return Canonical(raw), false
	}

	upper := strings.ToUpper(raw)
	body := make([]byte, 0, len(upper))
	for i := 0; i < len(upper); i++ {
		if isAlnum(upper[i]) {
			body = append(body, upper[i])
		}
	}
	if len(body) == 0 {
		return "", false
	}

	trimmed := strings.TrimPrefix(string(body), Prefix)
	altered = len(trimmed) != bodyLength
	if len(trimmed) > bodyLength {
		trimmed = trimmed[:bodyLength]
	}
	trimmed += strings.Repeat("0", bodyLength-len(trimmed))

	return format(trimmed), altered
}

func format(body string) string {
	var out strings.Builder
	out.Grow(Length)
	out.WriteString(Prefix)
	for i := 0; i < groupCount; i++ {
		out.WriteByte('-')
		out.WriteString(body[i*groupSize : (i+1)*groupSize])
	}

	return out.String()
}

// isBoundary reports whether a hyphen precedes the alphanumeric character at index i.
// Boundaries fall after the prefix (3) and after each group (7, 11), which puts
// hyphens at string positions 3, 8 and 13.
func isBoundary(i int) bool {
	return i == len(Prefix) || i == len(Prefix)+groupSize || i == len(Prefix)+2*groupSize
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
