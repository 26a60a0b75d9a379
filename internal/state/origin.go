package state

import "fmt"

// Origin tags where a change came from.
type Origin uint8

const (
	OriginUnknown Origin = iota
	OriginUser
	OriginProgrammatic
	OriginRemote
)

var originNames = [...]string{"unknown", "user", "programmatic", "remote"}

// String returns the origin name.
func (o Origin) String() string {
	if int(o) < len(originNames) {
		return originNames[o]
	}
	return fmt.Sprintf("origin(%d)", uint8(o))
}

// ParseOrigin parses an origin name.
func ParseOrigin(s string) (Origin, error) {
	for i, name := range originNames {
		if name == s {
			return Origin(i), nil
		}
	}
	return OriginUnknown, fmt.Errorf("unknown origin %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Origin) UnmarshalText(data []byte) error {
	parsed, err := ParseOrigin(string(data))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
