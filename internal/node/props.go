package node

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

var canonicalOptions = &pretty.Options{SortKeys: true}

// Props is a path-keyed attribute map stored as a JSON object.
// Paths use gjson syntax ("style.bold", "marks.0"). The zero value is an
// empty object. Props values are immutable; mutators return a new value.
type Props struct {
	raw string
}

// EmptyProps returns an empty property map.
func EmptyProps() Props {
	return Props{}
}

// ParseProps parses a JSON object.
func ParseProps(data string) (Props, error) {
	if data == "" {
		return Props{}, nil
	}
	if !gjson.Valid(data) || !gjson.Parse(data).IsObject() {
		return Props{}, fmt.Errorf("%w: props must be a JSON object", ErrInvalidProps)
	}
	return Props{raw: string(pretty.Ugly([]byte(data)))}, nil
}

// MustParseProps is like ParseProps but panics on error.
func MustParseProps(data string) Props {
	p, err := ParseProps(data)
	if err != nil {
		panic(err)
	}
	return p
}

// PropsFromMap builds props from a decoded map.
func PropsFromMap(m map[string]any) (Props, error) {
	if len(m) == 0 {
		return Props{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return Props{}, fmt.Errorf("%w: %v", ErrInvalidProps, err)
	}
	return Props{raw: string(data)}, nil
}

func (p Props) json() string {
	if p.raw == "" {
		return "{}"
	}
	return p.raw
}

// IsEmpty reports whether p has no keys.
func (p Props) IsEmpty() bool {
	return len(gjson.Parse(p.json()).Map()) == 0
}

// Get returns the value at path.
func (p Props) Get(path string) gjson.Result {
	return gjson.Get(p.json(), path)
}

// Has reports whether a value exists at path.
func (p Props) Has(path string) bool {
	return p.Get(path).Exists()
}

// Set returns a copy of p with value stored at path.
func (p Props) Set(path string, value any) (Props, error) {
	out, err := sjson.Set(p.json(), path, value)
	if err != nil {
		return p, fmt.Errorf("%w: set %s: %v", ErrInvalidProps, path, err)
	}
	return Props{raw: out}, nil
}

// SetRaw returns a copy of p with raw JSON stored at path.
func (p Props) SetRaw(path, raw string) (Props, error) {
	out, err := sjson.SetRaw(p.json(), path, raw)
	if err != nil {
		return p, fmt.Errorf("%w: set %s: %v", ErrInvalidProps, path, err)
	}
	return Props{raw: out}, nil
}

// Delete returns a copy of p without path.
func (p Props) Delete(path string) (Props, error) {
	out, err := sjson.Delete(p.json(), path)
	if err != nil {
		return p, fmt.Errorf("%w: delete %s: %v", ErrInvalidProps, path, err)
	}
	return Props{raw: out}, nil
}

// Keys returns the top-level keys in canonical order.
func (p Props) Keys() []string {
	var keys []string
	gjson.Parse(p.Canonical()).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

// Merge applies a top-level patch. A null value in the patch deletes the key.
func (p Props) Merge(patch Props) (Props, error) {
	out := p
	var err error
	gjson.Parse(patch.json()).ForEach(func(k, v gjson.Result) bool {
		path := escapePath(k.String())
		if v.Type == gjson.Null {
			out, err = out.Delete(path)
		} else {
			out, err = out.SetRaw(path, v.Raw)
		}
		return err == nil
	})
	return out, err
}

// Reverse returns the patch that undoes Merge(patch) on p: every key in
// patch mapped to its current value in p, or null when p lacks it.
func (p Props) Reverse(patch Props) (Props, error) {
	out := Props{}
	var err error
	gjson.Parse(patch.json()).ForEach(func(k, _ gjson.Result) bool {
		path := escapePath(k.String())
		if cur := gjson.Get(p.json(), path); cur.Exists() {
			out, err = out.SetRaw(path, cur.Raw)
		} else {
			out, err = out.SetRaw(path, "null")
		}
		return err == nil
	})
	return out, err
}

// Canonical returns the compact JSON with keys sorted at every level.
func (p Props) Canonical() string {
	return string(pretty.Ugly(pretty.PrettyOptions([]byte(p.json()), canonicalOptions)))
}

// Equal reports whether p and other hold the same attributes.
func (p Props) Equal(other Props) bool {
	return p.Canonical() == other.Canonical()
}

// Map decodes p into a generic map.
func (p Props) Map() map[string]any {
	m, ok := gjson.Parse(p.json()).Value().(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// String returns the JSON form.
func (p Props) String() string {
	return p.json()
}

// MarshalJSON implements json.Marshaler.
func (p Props) MarshalJSON() ([]byte, error) {
	return []byte(p.json()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Props) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Props{}
		return nil
	}
	parsed, err := ParseProps(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// escapePath quotes gjson path metacharacters in a literal key.
func escapePath(key string) string {
	var out []byte
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			out = append(out, '\\')
		}
		out = append(out, key[i])
	}
	return string(out)
}
