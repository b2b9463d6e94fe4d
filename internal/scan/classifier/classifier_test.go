package classifier

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"seqrpay/internal/payment/envelope"
)

type ClassifierSuite struct {
	suite.Suite
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) TestSignedPayment() {
	env := envelope.New(envelope.Intent{
		envelope.FieldPayee:    "alice",
		envelope.FieldAmount:   "12.50",
		envelope.FieldCurrency: "USD",
	}, envelope.AlgorithmSHA256WithECDSA, []byte("sig"))
	raw, err := env.Marshal()
	s.Require().NoError(err)

	got := Classify("  " + string(raw) + "\n")
	s.Equal(KindSignedPayment, got.Kind)
	s.Require().NotNil(got.Envelope)
	s.Equal("alice", got.Envelope.Intent().Payee())
	s.Equal("12.50", got.Display.Amount)
	s.Empty(got.URL)
}

func (s *ClassifierSuite) TestURL() {
	cases := map[string]string{
		"https://example.com/pay":          "https://example.com/pay",
		"paylink.example":                  "https://paylink.example",
		"http://shop.example/checkout?x=1": "http://shop.example/checkout?x=1",
		"HTTPS://Example.COM":              "HTTPS://Example.COM",
		"sub.domain-x.example:8443/a":      "https://sub.domain-x.example:8443/a",
		"192.168.1.10/login":               "https://192.168.1.10/login",
	}
	for in, want := range cases {
		s.Run(in, func() {
			got := Classify(in)
			s.Equal(KindURL, got.Kind)
			s.Equal(want, got.URL)
			s.Nil(got.Envelope)
		})
	}
}

func (s *ClassifierSuite) TestUnclassified() {
	for _, in := range []string{
		"",
		"hello world",
		"localhost",
		"javascript:alert(1)",
		"ftp://files.example",
		"https://user:pw@evil.example",
		"https://under_score.example",
		"{not json",
		"WIFI:S:home;T:WPA;P:secret;;",
	} {
		s.Run(in, func() {
			got := Classify(in)
			s.Equal(KindUnclassified, got.Kind)
			s.Equal(in, got.Raw)
			s.Nil(got.Envelope)
		})
	}
}

func (s *ClassifierSuite) TestStructuredWithoutSignatureIsNeverSigned() {
	for _, in := range []string{
		`{"type":"paymentRequest","dataToSign":{"payeeUsername":"alice"}}`,
		`{"type":"paymentRequest","signature":"AA"}`,
		`{"type":"other","dataToSign":{},"signature":"AA"}`,
		`{"type":"paymentRequest","dataToSign":{"amount":[1]},"signature":"AA"}`,
	} {
		got := Classify(in)
		s.NotEqual(KindSignedPayment, got.Kind, in)
		s.Nil(got.Envelope)
	}
}
