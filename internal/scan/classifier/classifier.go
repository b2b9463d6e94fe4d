// Package classifier sorts raw scanned text into payload kinds.
package classifier

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"seqrpay/internal/payment/envelope"
)

// Kind is the closed set of payload kinds.
type Kind string

const (
	KindSignedPayment Kind = "signed_payment"
	KindURL           Kind = "url"
	KindUnclassified  Kind = "unclassified"
)

const secureScheme = "https://"

// hostPattern requires at least two dot-separated labels.
var hostPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)+$`)

// ScannedPayload is the classified form of one scanned text.
type ScannedPayload struct {
	Raw  string
	Kind Kind
	// URL is the normalized location for KindURL.
	URL string
	// Envelope and Display are set for KindSignedPayment only.
	Envelope *envelope.SignedEnvelope
	Display  envelope.Display
}

// Classify never fails: text that is neither a signed payment nor a
// plausible URL is Unclassified.
func Classify(raw string) ScannedPayload {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "{") {
		if env, display, err := envelope.Decode([]byte(text)); err == nil {
			return ScannedPayload{Raw: raw, Kind: KindSignedPayment, Envelope: env, Display: display}
		}
	}

	if normalized, ok := NormalizeURL(text); ok {
		return ScannedPayload{Raw: raw, Kind: KindURL, URL: normalized}
	}

	return ScannedPayload{Raw: raw, Kind: KindUnclassified}
}

// NormalizeURL returns text as an http(s) URL, prefixing https:// when no
// scheme is given. Text with whitespace, another scheme, or a host that is
// not a dotted name or IP address is rejected.
func NormalizeURL(text string) (string, bool) {
	if text == "" || strings.IndexFunc(text, unicode.IsSpace) >= 0 {
		return "", false
	}

	candidate := text
	lower := strings.ToLower(text)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(text, "://") {
			return "", false
		}
		candidate = secureScheme + text
	}

	u, err := url.Parse(candidate)
	if err != nil || u.User != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if !plausibleHost(u.Hostname()) {
		return "", false
	}
	return candidate, true
}

func plausibleHost(host string) bool {
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}
	return hostPattern.MatchString(host)
}
