// Package scanner locates a base64-encoded image inside an API response of
// unknown shape.
//
// The response is walked depth-first as a tree of mappings, sequences and
// scalars using an explicit stack. Opaque Go values (typed SDK responses,
// structs) are first turned into a plain map view. The string values of a
// mapping are checked in sorted key order, then its containers are entered in
// sorted key order; sequence elements follow index order. The winner among
// several candidates is therefore stable across runs.
package scanner

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MinBase64Length is the shortest string accepted as an encoded image.
const MinBase64Length = 100

// maxVisits bounds the walk over self-referencing values.
const maxVisits = 1 << 20

// PreferredKeys are checked, in this order, on every mapping before its other values.
var PreferredKeys = []string{
	"image_base64",
	"b64_json",
	"base64",
	"data",
	"image",
	"content",
}

// ErrEmptyPayload is returned by Decode for an empty candidate.
var ErrEmptyPayload = errors.New("empty base64 payload")

// LooksLikeBase64 reports whether s is at least MinBase64Length characters
// drawn only from the base64 alphabet, padding and whitespace.
func LooksLikeBase64(s string) bool {
	if len(s) < MinBase64Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '+', c == '/', c == '=':
		case c == ' ', c == '\t', c == '\n', c == '\r', c == '\v', c == '\f':
		default:
			return false
		}
	}
	return true
}

// Find returns the first string in payload that satisfies LooksLikeBase64.
// It never panics; ok is false when no candidate exists.
func Find(payload any) (candidate string, ok bool) {
	stack := []node{classify(payload)}
	seen := make(map[identity]bool)

	for visits := 0; len(stack) > 0 && visits < maxVisits; visits++ {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if id, shared := identityOf(cur); shared {
			if seen[id] {
				continue
			}
			seen[id] = true
		}

		switch cur.kind {
		case KindMapping:
			if s, found := preferredCandidate(cur.mapping); found {
				return s, true
			}
			var children []node
			for _, k := range sortedKeys(cur.mapping) {
				child := classify(cur.mapping[k])
				if child.kind == KindScalar {
					if child.isString && LooksLikeBase64(child.str) {
						return child.str, true
					}
					continue
				}
				children = append(children, child)
			}
			stack = pushReversed(stack, children)

		case KindSequence:
			var children []node
			for _, item := range cur.sequence {
				child := classify(item)
				if child.kind == KindScalar {
					if child.isString && LooksLikeBase64(child.str) {
						return child.str, true
					}
					continue
				}
				children = append(children, child)
			}
			stack = pushReversed(stack, children)

		case KindOpaque:
			if view, converted := normalize(cur.opaque); converted {
				stack = append(stack, view)
			}

		case KindScalar:
			// only reachable for the root value
			if cur.isString && LooksLikeBase64(cur.str) {
				return cur.str, true
			}
		}
	}

	return "", false
}

// pushReversed pushes children so the first one is popped first
func pushReversed(stack, children []node) []node {
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, children[i])
	}
	return stack
}

// preferredCandidate checks the alias keys of m: a qualifying string value,
// or a nested mapping holding one directly.
func preferredCandidate(m map[string]any) (string, bool) {
	for _, key := range PreferredKeys {
		v, exists := m[key]
		if !exists {
			continue
		}
		child := classify(v)
		if child.kind == KindOpaque {
			child, _ = normalize(child.opaque)
		}
		switch child.kind {
		case KindScalar:
			if child.isString && LooksLikeBase64(child.str) {
				return child.str, true
			}
		case KindMapping:
			for _, k := range sortedKeys(child.mapping) {
				if s, isString := child.mapping[k].(string); isString && LooksLikeBase64(s) {
					return s, true
				}
			}
		}
	}
	return "", false
}

// Decode decodes a candidate returned by Find. Whitespace is ignored and
// padding is optional.
func Decode(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return nil, ErrEmptyPayload
	}

	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err == nil {
		return data, nil
	}

	raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
	if rawErr != nil {
		return nil, err
	}
	return raw, nil
}

// FindAndDecode combines Find and Decode. A missing candidate yields
// (nil, false, nil); a candidate that fails to decode yields its error.
func FindAndDecode(payload any) ([]byte, bool, error) {
	candidate, ok := Find(payload)
	if !ok {
		return nil, false, nil
	}
	data, err := Decode(candidate)
	if err != nil {
		return nil, true, err
	}
	return data, true, nil
}
