package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite covers the error primitives every component returns.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestError() {
	s.Run("message wins over code", func() {
		err := &Error{Code: CodeKeyNotFound, Message: "no keypair for alice"}
		s.Equal("no keypair for alice", err.Error())
	})

	s.Run("code when message is empty", func() {
		err := &Error{Code: CodeDoubleReport}
		s.Equal("double_report", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIs() {
	s.Run("matches by code only", func() {
		s.True(errors.Is(New(CodeEncoding, "bad value"), &Error{Code: CodeEncoding}))
	})

	s.Run("different codes do not match", func() {
		s.False(errors.Is(New(CodeEncoding, "bad value"), &Error{Code: CodeSigning}))
	})

	s.Run("plain errors never match", func() {
		err := &Error{Code: CodeNotReady}
		s.False(err.Is(errors.New("not_ready")))
	})

	s.Run("found through fmt wrapping", func() {
		err := fmt.Errorf("aggregate: %w", New(CodeNotReady, "still collecting"))
		s.True(errors.Is(err, &Error{Code: CodeNotReady}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves an existing domain code", func() {
		wrapped := Wrap(New(CodeKeyNotFound, "no key"), CodeInternal, "load signer")
		s.True(HasCode(wrapped, CodeKeyNotFound))
		s.Equal("load signer", wrapped.Error())
	})

	s.Run("applies the code to foreign errors", func() {
		root := errors.New("disk full")
		wrapped := Wrap(root, CodeInternal, "persist index")
		s.True(HasCode(wrapped, CodeInternal))
		s.ErrorIs(wrapped, root)
	})
}

func (s *DomainErrorsSuite) TestReclassify() {
	inner := New(CodeKeyNotFound, "no key")
	err := Reclassify(inner, CodeSigning, "cannot sign")

	s.True(HasCode(err, CodeSigning))
	s.ErrorIs(err, &Error{Code: CodeKeyNotFound})
	s.ErrorIs(err, inner)
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.False(HasCode(nil, CodeNotFound))
	s.False(HasCode(errors.New("regular"), CodeNotFound))
	s.True(HasCode(New(CodeTimeout, "slow"), CodeTimeout))
}
