package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"emberhq/ember/pkg/engine"
)

// DeriveKey maps a normalized request to its content-addressed cache key.
//
// The inputs are serialized in a fixed field order with length-prefixed
// values, so field boundaries are unambiguous, then hashed with SHA-256.
// Parameters must already be resolved to effective
// values: requests that spell out a default and requests that omit the
// field hash identically.
//
// The function is pure: identical triples always yield the identical key.
func DeriveKey(prompt, system string, params engine.Params) string {
	h := sha256.New()

	field := func(name, value string) {
		fmt.Fprintf(h, "%s:%d:%s;", name, len(value), value)
	}

	field("prompt", prompt)
	field("system", system)
	field("temperature", strconv.FormatFloat(params.Temperature, 'f', -1, 64))
	field("top_p", strconv.FormatFloat(params.TopP, 'f', -1, 64))
	field("max_tokens", strconv.Itoa(params.MaxTokens))

	return hex.EncodeToString(h.Sum(nil))
}
