/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/pingax/gem-sub001/internal/inifile"
)

// keyAliases maps the option names used in the INI files to field names.
var keyAliases = map[string]string{
	"roms":  "path",
	"exts":  "extensions",
	"save":  "savestates",
	"snaps": "screenshots",
}

// normalizeKeys lowercases keys and resolves the INI aliases.
func normalizeKeys(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		key = strings.ToLower(strings.TrimSpace(key))
		if alias, ok := keyAliases[key]; ok {
			key = alias
		}
		out[key] = value
	}
	return out
}

// withoutKeys returns a copy of data without the given keys.
func withoutKeys(data map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = value
	}
	for _, key := range keys {
		delete(out, key)
	}
	return out
}

// ingest decodes a keyword map into target. Strings are coerced to booleans
// ("yes"/"no") and to lists (";" separated); unknown keys are rejected.
func ingest(data map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToBoolHook,
			stringToListHook,
		),
		ErrorUnused: true,
		Result:      target,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(normalizeKeys(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return nil
}

func stringToBoolHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	value := strings.TrimSpace(reflect.ValueOf(data).String())
	if value == "" {
		return false, nil
	}
	b, ok := inifile.ParseBool(value)
	if !ok {
		return nil, fmt.Errorf("%q is not a boolean", value)
	}
	return b, nil
}

func stringToListHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}
	return splitList(reflect.ValueOf(data).String()), nil
}

// splitList splits a ";" joined value, dropping blanks and duplicates while
// keeping the first occurrence order.
func splitList(value string) []string {
	return uniqueStrings(strings.Split(value, ";"))
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
