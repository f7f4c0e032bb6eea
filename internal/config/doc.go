// Package config resolves the kvirt configuration document into effective
// settings.
//
// # Overview
//
// The configuration home holds two documents:
//   - config.yml: a mapping of section name to options. The reserved
//     "default" section carries global defaults and the active client name;
//     every other section describes one client (a provisioning target).
//   - secrets.yml: an optional mapping with the same shape, holding the
//     literal values referenced by "?secret" markers in config.yml.
//
// # Resolution
//
// Load reads both documents, substitutes secret markers (ResolveSecrets) and
// then builds a Settings value (Resolve). Options cascade per key through
// three layers, lowest first:
//
//	builtin defaults -> default section -> client section
//
// Every option is coerced to its semantic kind by the schema table in
// options.go. Settings is immutable once built; callers that need
// per-invocation values layer them on top with Settings.WithOverrides.
//
// # Mutations
//
// SwitchClient, EnableClient, DisableClient and WriteDefaults edit the raw
// document in place. The caller persists it through the store package, which
// writes atomically and keeps the key order of the original file.
package config
