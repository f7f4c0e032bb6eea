package service

import (
	"context"
	"errors"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/config"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/document"
)

// ListClients describes the configured clients.
func (b *Base) ListClients() ([]config.Client, error) {
	return config.ListClients(b.state.Document)
}

// SwitchClient makes name the default client. A missing or disabled client
// leaves the stored document unchanged.
func (b *Base) SwitchClient(ctx context.Context, name string) (Result, error) {
	return b.editConfig(ctx, func(doc *document.Mapping) (Result, error) {
		return clientResult(config.SwitchClient(doc, name), name, "set as default")
	})
}

// EnableClient marks name as enabled.
func (b *Base) EnableClient(ctx context.Context, name string) (Result, error) {
	return b.editConfig(ctx, func(doc *document.Mapping) (Result, error) {
		return clientResult(config.EnableClient(doc, name), name, "enabled")
	})
}

// DisableClient marks name as disabled. The default client cannot be
// disabled.
func (b *Base) DisableClient(ctx context.Context, name string) (Result, error) {
	return b.editConfig(ctx, func(doc *document.Mapping) (Result, error) {
		return clientResult(config.DisableClient(doc, name), name, "disabled")
	})
}

func clientResult(err error, name, verb string) (Result, error) {
	var disabled *config.DisabledClientError
	switch {
	case err == nil:
		return Result{Success: true, Reason: "client " + name + " " + verb}, nil
	case errors.Is(err, config.ErrClientNotFound):
		return failed("client %s not found in config", name), nil
	case errors.As(err, &disabled):
		return failed("client %s is disabled", name), nil
	case errors.Is(err, config.ErrCurrentDefault):
		return failed("client %s is the default client", name), nil
	default:
		return Result{}, err
	}
}

// Keywords returns the effective default of every option.
func (b *Base) Keywords() map[string]interface{} {
	return config.Keywords(b.state.Settings)
}

// WriteDefaults records the effective defaults in the default section of
// the stored config document. Options stored as secret markers keep their
// marker.
func (b *Base) WriteDefaults(ctx context.Context) (Result, error) {
	return b.editConfig(ctx, func(doc *document.Mapping) (Result, error) {
		markers := secretMarkers(doc)
		if err := config.WriteDefaults(doc, b.state.Settings); err != nil {
			return Result{}, err
		}
		def, _, err := doc.Child(config.DefaultSection)
		if err != nil {
			return Result{}, err
		}
		for _, key := range markers {
			def.Set(key, config.SecretMarker)
		}
		return succeeded(), nil
	})
}

func secretMarkers(doc *document.Mapping) []string {
	def, ok, err := doc.Child(config.DefaultSection)
	if err != nil || !ok {
		return nil
	}
	var keys []string
	for _, key := range def.Keys() {
		if v, _ := def.Get(key); v == config.SecretMarker {
			keys = append(keys, key)
		}
	}
	return keys
}
