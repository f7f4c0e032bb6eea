package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// ErrEmptyKeyring is returned when a keyring holds no keys.
var ErrEmptyKeyring = errors.New("keyring is empty")

// SignatureError reports a document whose signature does not verify.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("verify signature: %v", e.Err)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// Verifier checks detached OpenPGP signatures against a fixed keyring.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier reads an armored or binary keyring from r.
func NewVerifier(r io.Reader) (*Verifier, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, ErrEmptyKeyring
	}
	return &Verifier{keyring: keyring}, nil
}

// Verify checks signature, armored or binary, over document.
func (v *Verifier) Verify(document, signature []byte) error {
	_, err := openpgp.CheckArmoredDetachedSignature(v.keyring, bytes.NewReader(document), bytes.NewReader(signature), nil)
	if err != nil {
		_, err = openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(document), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return &SignatureError{Err: err}
	}
	return nil
}
