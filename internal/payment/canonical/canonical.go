// Package canonical turns a flat field set into the byte string that
// signers and verifiers both sign over.
//
// Format: field names sorted byte-wise ascending, each emitted as name=value,
// joined by '&' with no trailing separator. Values are copied verbatim. A
// value containing '&' or '=' can make two different field sets collide; this
// is part of the version 1.0 wire format and is reported by AmbiguousFields
// rather than escaped.
package canonical

import (
	"sort"
	"strings"
	"unicode/utf8"

	dErrors "seqrpay/pkg/domain-errors"
)

const (
	pairSeparator  = "&"
	valueSeparator = "="
)

// ErrEncoding matches any canonicalization failure via errors.Is.
var ErrEncoding = dErrors.New(dErrors.CodeEncoding, "field set is not canonicalizable")

// Encode returns the canonical string for fields. It fails with an encoding
// error if a name or value is not valid UTF-8.
func Encode(fields map[string]string) (string, error) {
	names := make([]string, 0, len(fields))
	for name, value := range fields {
		if !utf8.ValidString(name) {
			return "", dErrors.New(dErrors.CodeEncoding, "field name is not valid UTF-8")
		}
		if !utf8.ValidString(value) {
			return "", dErrors.New(dErrors.CodeEncoding, "value of field "+name+" is not valid UTF-8")
		}
		names = append(names, name)
	}
	// Go strings compare byte-wise.
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString(pairSeparator)
		}
		b.WriteString(name)
		b.WriteString(valueSeparator)
		b.WriteString(fields[name])
	}
	return b.String(), nil
}

// Bytes is Encode returning the signing input.
func Bytes(fields map[string]string) ([]byte, error) {
	s, err := Encode(fields)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// AmbiguousFields lists, sorted, the fields whose name or value contains a
// separator character and therefore cannot be told apart from a different
// field set after encoding.
func AmbiguousFields(fields map[string]string) []string {
	var out []string
	for name, value := range fields {
		if strings.ContainsAny(name, pairSeparator+valueSeparator) ||
			strings.ContainsAny(value, pairSeparator+valueSeparator) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
