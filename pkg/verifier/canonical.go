// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

package verifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalJSON serializes v with object keys sorted ascending by Unicode
// code point at every depth, arrays left in their original order, and
// minimal whitespace, the normative canonicalization rule.
// Swapping the insertion order of any map's keys produces byte-identical
// output, which is what makes manifest signatures key-order independent.
func CanonicalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := canonicalize(v, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func canonicalize(v interface{}, buf *bytes.Buffer) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := canonicalize(val[k], buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := canonicalize(e, buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case []string:
		generic := make([]interface{}, len(val))
		for i, s := range val {
			generic[i] = s
		}
		return canonicalize(generic, buf)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("verifier: canonicalizing value: %w", err)
		}
		buf.Write(b)
		return nil
	}
}
