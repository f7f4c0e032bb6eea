package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDefault is returned when the document has several sections
	// but no "default" section.
	ErrMissingDefault = errors.New("missing default section in config file")

	// ErrNoConfiguration is returned when no config document exists and no
	// local hypervisor was detected.
	ErrNoConfiguration = errors.New("no configuration found nor local hypervisor")

	// ErrNoEnabledClients is returned when "all" clients were requested and
	// none is enabled.
	ErrNoEnabledClients = errors.New("no enabled clients")

	// ErrClientNotFound is returned by client mutations naming an unknown
	// client.
	ErrClientNotFound = errors.New("client not found in config")

	// ErrCurrentDefault is returned when disabling the active client.
	ErrCurrentDefault = errors.New("client is the current default")
)

// MissingSecretError reports a "?secret" marker without a matching entry in
// the secret store.
type MissingSecretError struct {
	Section string
	Key     string
}

func (e *MissingSecretError) Error() string {
	return fmt.Sprintf("missing secret for %s/%s", e.Section, e.Key)
}

// OptionError reports an option value that cannot be coerced to its kind.
type OptionError struct {
	Section string
	Key     string
	Kind    Kind
	Err     error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("invalid %s value for %s in section %s: %v", e.Kind, e.Key, e.Section, e.Err)
}

func (e *OptionError) Unwrap() error {
	return e.Err
}

// DisabledClientError is returned when the selected client is disabled.
type DisabledClientError struct {
	Client string
}

func (e *DisabledClientError) Error() string {
	return fmt.Sprintf("disabled client %s", e.Client)
}

// SectionError reports a section whose value is not a mapping.
type SectionError struct {
	Section string
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %s: %v", e.Section, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}
