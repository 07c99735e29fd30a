// Package jsonwire decodes the engine's JSON wire format strictly.
//
// encoding/json silently accepts duplicate keys and coerces kinds, which is
// not acceptable for rule content that arrives from untrusted clients. The
// helpers here validate the raw document with gjson first and report the
// offending key and the expected kind as CodeMalformedJSON errors.
package jsonwire

import (
	stderrors "errors"
	"fmt"
	"math"
	"strconv"

	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
	"github.com/tidwall/gjson"
)

// Members holds the validated members of a JSON object keyed by name.
type Members map[string]gjson.Result

func parse(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, apperrors.MalformedJSON("", "invalid json document")
	}
	return gjson.ParseBytes(data), nil
}

// Object validates that data is a JSON object with unique keys.
func Object(data []byte, what string) (Members, error) {
	res, err := parse(data)
	if err != nil {
		return nil, err
	}
	if !res.IsObject() {
		return nil, apperrors.MalformedJSON("", fmt.Sprintf("%s: expected object, found %s", what, kindOf(res)))
	}
	members := Members{}
	var dup string
	res.ForEach(func(key, value gjson.Result) bool {
		if _, ok := members[key.Str]; ok {
			dup = key.Str
			return false
		}
		members[key.Str] = value
		return true
	})
	if dup != "" {
		return nil, apperrors.MalformedJSON(dup, what+": duplicate key")
	}
	return members, nil
}

// Array validates that data is a JSON array and returns its elements.
func Array(data []byte, what string) ([]gjson.Result, error) {
	res, err := parse(data)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, apperrors.MalformedJSON("", fmt.Sprintf("%s: expected array, found %s", what, kindOf(res)))
	}
	return res.Array(), nil
}

// String validates that data is a JSON string and returns it.
func String(data []byte, what string) (string, error) {
	res, err := parse(data)
	if err != nil {
		return "", err
	}
	if res.Type != gjson.String {
		return "", apperrors.MalformedJSON("", fmt.Sprintf("%s: expected string, found %s", what, kindOf(res)))
	}
	return res.Str, nil
}

// Only rejects members whose key is not listed.
func (m Members) Only(keys ...string) error {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			return apperrors.MalformedJSON(k, "unknown key")
		}
	}
	return nil
}

// Has reports whether key is present.
func (m Members) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Value returns the raw member stored under key; the key is required.
func (m Members) Value(key string) (gjson.Result, error) {
	v, ok := m[key]
	if !ok {
		return gjson.Result{}, apperrors.MalformedJSON(key, "missing required key")
	}
	return v, nil
}

// Raw returns the raw JSON text of a required member, ready to be handed to a
// nested UnmarshalJSON.
func (m Members) Raw(key string) ([]byte, error) {
	v, err := m.Value(key)
	if err != nil {
		return nil, err
	}
	return []byte(v.Raw), nil
}

// String returns a required string member.
func (m Members) String(key string) (string, error) {
	v, err := m.Value(key)
	if err != nil {
		return "", err
	}
	if v.Type != gjson.String {
		return "", apperrors.MalformedJSON(key, "expected string, found "+kindOf(v))
	}
	return v.Str, nil
}

// Number returns a required number member.
func (m Members) Number(key string) (float64, error) {
	v, err := m.Value(key)
	if err != nil {
		return 0, err
	}
	return NumberOf(key, v)
}

// NumberOf validates that v is a JSON number.
func NumberOf(key string, v gjson.Result) (float64, error) {
	if v.Type != gjson.Number {
		return 0, apperrors.MalformedJSON(key, "expected number, found "+kindOf(v))
	}
	return v.Num, nil
}

// IntOf validates that v is an integral JSON number that fits in an int.
func IntOf(key string, v gjson.Result) (int, error) {
	n, err := NumberOf(key, v)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, apperrors.MalformedJSON(key, "expected integer, found "+strconv.FormatFloat(n, 'g', -1, 64))
	}
	return int(n), nil
}

// Float32Of validates that v is a JSON number representable as float32.
func Float32Of(key string, v gjson.Result) (float32, error) {
	n, err := NumberOf(key, v)
	if err != nil {
		return 0, err
	}
	if math.Abs(n) > math.MaxFloat32 {
		return 0, apperrors.MalformedJSON(key, "number out of float32 range")
	}
	return float32(n), nil
}

// Within prefixes the key of a malformed-json error with path so nested
// failures point at their location, e.g. "attributes[2].name". Other errors
// are returned unchanged.
func Within(path string, err error) error {
	if err == nil {
		return nil
	}
	var e *apperrors.Error
	if !stderrors.As(err, &e) || e.Code != apperrors.CodeMalformedJSON {
		return err
	}
	key := path
	if inner := e.Meta(apperrors.MetaKey); inner != "" {
		if inner[0] == '[' {
			key = path + inner
		} else {
			key = path + "." + inner
		}
	}
	out := apperrors.MalformedJSON(key, stripPrefix(e))
	out.Cause = e.Cause
	return out
}

// Index formats an array position for Within.
func Index(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

func stripPrefix(e *apperrors.Error) string {
	key := e.Meta(apperrors.MetaKey)
	prefix := "malformed json: "
	if key != "" {
		prefix = fmt.Sprintf("malformed json at %q: ", key)
	}
	if len(e.Message) >= len(prefix) && e.Message[:len(prefix)] == prefix {
		return e.Message[len(prefix):]
	}
	return e.Message
}

func kindOf(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		if !v.Exists() {
			return "nothing"
		}
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	case gjson.JSON:
		if v.IsArray() {
			return "array"
		}
		return "object"
	default:
		return "unknown"
	}
}
