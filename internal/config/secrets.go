package config

import (
	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

// SecretMarker is the value that defers an option to the secret store.
const SecretMarker = "?secret"

// ResolveSecrets replaces every top-level option value equal to SecretMarker
// with secrets[section][key]. The secret store is never modified.
//
// Sections are visited in document order; the first unresolved marker is
// returned as a *MissingSecretError.
func ResolveSecrets(doc, secrets *document.Mapping) error {
	for _, section := range doc.Keys() {
		options, _, err := doc.Child(section)
		if err != nil {
			return &SectionError{Section: section, Err: err}
		}

		for _, key := range options.Keys() {
			value, _ := options.Get(key)
			if s, ok := value.(string); !ok || s != SecretMarker {
				continue
			}

			secret, found, err := lookupSecret(secrets, section, key)
			if err != nil {
				return err
			}
			if !found {
				return &MissingSecretError{Section: section, Key: key}
			}
			options.Set(key, secret)
		}
	}
	return nil
}

func lookupSecret(secrets *document.Mapping, section, key string) (interface{}, bool, error) {
	raw, ok := secrets.Get(section)
	if !ok {
		return nil, false, nil
	}

	var values *document.Mapping
	switch v := raw.(type) {
	case *document.Mapping:
		values = v
	case map[string]interface{}:
		values = document.FromMap(v)
	case nil:
		return nil, false, nil
	default:
		return nil, false, &SectionError{Section: section, Err: errNotMapping(v)}
	}

	secret, ok := values.Get(key)
	return secret, ok, nil
}

func errNotMapping(v interface{}) error {
	return &document.NotAMappingError{Kind: kindOf(v)}
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case []interface{}:
		return "sequence"
	case string, bool, int, float64:
		return "scalar"
	default:
		return "value"
	}
}
