package tag

import (
	"encoding/json"

	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
	"github.com/louisbranch/rulesheet/internal/platform/jsonwire"
)

// MarshalText implements encoding.TextMarshaler, which also lets Tag key JSON
// objects.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON encodes the tag as a JSON string.
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.name)
}

// UnmarshalJSON decodes a JSON string into a tag.
func (t *Tag) UnmarshalJSON(data []byte) error {
	s, err := jsonwire.String(data, "tag")
	if err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return invalidTag("", err)
	}
	*t = parsed
	return nil
}

// MarshalJSON encodes the primary tags as an object of tag to count. Prefix
// counts are derived again on load.
func (s Set) MarshalJSON() ([]byte, error) {
	out := make(map[Tag]int, len(s.primary))
	for t, n := range s.primary {
		out[t] = n
	}
	return json.Marshal(out)
}

// UnmarshalJSON replaces the set with the decoded tags.
func (s *Set) UnmarshalJSON(data []byte) error {
	members, err := jsonwire.Object(data, "tag set")
	if err != nil {
		return err
	}
	decoded := Set{}
	for key, value := range members {
		t, err := Parse(key)
		if err != nil {
			return invalidTag(key, err)
		}
		if decoded.PrimaryCount(t) > 0 {
			return apperrors.MalformedJSON(key, "duplicate tag after normalization")
		}
		n, err := jsonwire.IntOf(key, value)
		if err != nil {
			return err
		}
		if n < 0 {
			return apperrors.MalformedJSON(key, "negative tag count")
		}
		decoded.AddCount(t, n)
	}
	*s = decoded
	return nil
}

func invalidTag(key string, err error) error {
	out := apperrors.MalformedJSON(key, err.Error())
	out.Cause = err
	return out
}
