package ports

import (
	"bytes"
	"encoding/json"
)

// DeviceRecord is one entry of the provisioner's "devices" list.
type DeviceRecord struct {
	Port      Field `json:"port"`
	State     Field `json:"state"`
	Serial    Field `json:"serial"`
	IPAddress Field `json:"ip_address"`
	Image     Field `json:"image"`
}

// Field is an optional upstream value. Strings are taken verbatim; other
// scalars (numbers, booleans) keep their JSON text. null counts as absent.
type Field struct {
	value string
	set   bool
}

func NewField(v string) Field {
	return Field{value: v, set: true}
}

func (f Field) Value() string { return f.value }
func (f Field) IsSet() bool   { return f.set }

// Or returns the value, or fallback when the field was absent.
func (f Field) Or(fallback string) string {
	if !f.set {
		return fallback
	}
	return f.value
}

func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = Field{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = NewField(s)
		return nil
	}
	*f = NewField(string(b))
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
