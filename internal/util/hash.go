package util

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	fnvOffset32 uint32  = 2166136261
	fnvPrime32  float64 = 16777619
)

// StableObjectHash fingerprints a JSON-compatible value. Object keys are
// sorted before hashing so key order never changes the result.
//
// The loop is an FNV-1a variant over UTF-16 code units whose multiply runs
// in float64 on the signed xor result, then wraps to 32 bits. Digests stay
// identical to the ones the web client computes for the same payload.
func StableObjectHash(value any) string {
	hash := fnvOffset32
	for _, unit := range utf16.Encode([]rune(StableStringify(value))) {
		mixed := int32(hash ^ uint32(unit))
		hash = uint32(int64(float64(mixed) * fnvPrime32))
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// StableStringify renders value as canonical JSON with sorted object keys.
// Structs are first round-tripped through encoding/json so their tags apply.
func StableStringify(value any) string {
	switch value.(type) {
	case nil, string, bool, float64, json.Number, map[string]any, []any:
	default:
		raw, err := marshalNoEscape(value)
		if err != nil {
			return "null"
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var generic any
		if err := dec.Decode(&generic); err != nil {
			return "null"
		}
		value = generic
	}

	var b strings.Builder
	writeStable(&b, value)
	return b.String()
}

func writeStable(b *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeScalar(b, k)
			b.WriteByte(':')
			writeStable(b, v[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeStable(b, item)
		}
		b.WriteByte(']')
	default:
		writeScalar(b, v)
	}
}

func writeScalar(b *strings.Builder, v any) {
	raw, err := marshalNoEscape(v)
	if err != nil {
		b.WriteString("null")
		return
	}
	b.Write(raw)
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
