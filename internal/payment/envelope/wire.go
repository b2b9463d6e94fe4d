package envelope

import (
	"bytes"
	"encoding/json"
	"strconv"

	dErrors "seqrpay/pkg/domain-errors"
)

const (
	keyDataToSign = "dataToSign"
)

var ErrNotEnvelope = dErrors.New(dErrors.CodeBadRequest, "not a signed payment envelope")

// Display holds human-facing fields. They come from the intent block when
// present and from the top-level mirrors otherwise; they are never used for
// verification.
type Display struct {
	Payee     string `json:"payeeUsername,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type outbound struct {
	Type               string            `json:"type"`
	Version            string            `json:"version"`
	PayeeUsername      string            `json:"payeeUsername,omitempty"`
	Amount             string            `json:"amount,omitempty"`
	Currency           string            `json:"currency,omitempty"`
	Timestamp          string            `json:"timestamp,omitempty"`
	DataToSign         map[string]string `json:"dataToSign"`
	SignatureAlgorithm string            `json:"signatureAlgorithm"`
	Signature          string            `json:"signature"`
}

type inbound struct {
	Type               string          `json:"type"`
	Version            string          `json:"version"`
	PayeeUsername      json.RawMessage `json:"payeeUsername"`
	Amount             json.RawMessage `json:"amount"`
	Currency           json.RawMessage `json:"currency"`
	Timestamp          json.RawMessage `json:"timestamp"`
	DataToSign         json.RawMessage `json:"dataToSign"`
	SignatureAlgorithm string          `json:"signatureAlgorithm"`
	Signature          *string         `json:"signature"`
}

// Marshal renders the wire document with top-level display mirrors.
func (e *SignedEnvelope) Marshal() ([]byte, error) {
	doc := outbound{
		Type:               TypePaymentRequest,
		Version:            Version,
		PayeeUsername:      e.intent.Payee(),
		Amount:             e.intent.Amount(),
		Currency:           e.intent.Currency(),
		Timestamp:          e.intent.Timestamp(),
		DataToSign:         e.intent.Clone(),
		SignatureAlgorithm: e.algorithm,
		Signature:          e.signature,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode envelope")
	}
	return raw, nil
}

// Decode parses a wire document. It succeeds only for documents of type
// paymentRequest that carry both an intent block and a signature. Scalar
// intent values that are JSON numbers or booleans are kept as their literal
// text; any other non-string value rejects the document.
func Decode(raw []byte) (*SignedEnvelope, Display, error) {
	var doc inbound
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, Display{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "envelope is not a JSON object")
	}
	if doc.Type != TypePaymentRequest {
		return nil, Display{}, ErrNotEnvelope
	}
	if isAbsent(doc.DataToSign) {
		return nil, Display{}, dErrors.New(dErrors.CodeBadRequest, "envelope has no intent block")
	}
	if doc.Signature == nil {
		return nil, Display{}, dErrors.New(dErrors.CodeBadRequest, "envelope has no signature")
	}
	intent, err := decodeIntent(doc.DataToSign)
	if err != nil {
		return nil, Display{}, err
	}

	display := Display{
		Payee:     firstNonEmpty(intent.Payee(), scalarText(doc.PayeeUsername)),
		Amount:    firstNonEmpty(intent.Amount(), scalarText(doc.Amount)),
		Currency:  firstNonEmpty(intent.Currency(), scalarText(doc.Currency)),
		Timestamp: firstNonEmpty(intent.Timestamp(), scalarText(doc.Timestamp)),
	}
	return newEncoded(intent, doc.SignatureAlgorithm, *doc.Signature), display, nil
}

func decodeIntent(raw json.RawMessage) (Intent, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "intent block is not a JSON object")
	}
	intent := make(Intent, len(fields))
	for name, v := range fields {
		text, ok := scalarToText(v)
		if !ok {
			return nil, dErrors.New(dErrors.CodeBadRequest, "intent field "+name+" is not a scalar")
		}
		intent[name] = text
	}
	return intent, nil
}

func scalarToText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// scalarText is best effort: anything unusable becomes "".
func scalarText(raw json.RawMessage) string {
	if isAbsent(raw) {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	text, _ := scalarToText(v)
	return text
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
