package monitor

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when a payload is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// View provides field access over a message's raw payload.
type View interface {
	// HasField returns true if the path exists in the payload.
	HasField(path string) bool

	// GetString returns the string value at path, or false if not found
	// or not a string.
	GetString(path string) (string, bool)

	// GetBytes returns the raw bytes at path, or false if not found.
	// For JSON, this returns the raw JSON value (including quotes for strings).
	GetBytes(path string) ([]byte, bool)
}

// Inspect returns a gjson-backed View over raw.
func Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return jsonView{raw: raw}, nil
}

type jsonView struct {
	raw []byte
}

func (v jsonView) HasField(path string) bool {
	return gjson.GetBytes(v.raw, path).Exists()
}

func (v jsonView) GetString(path string) (string, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (v jsonView) GetBytes(path string) ([]byte, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return nil, false
	}
	return []byte(r.Raw), true
}

type emptyView struct{}

func (emptyView) HasField(string) bool            { return false }
func (emptyView) GetString(string) (string, bool) { return "", false }
func (emptyView) GetBytes(string) ([]byte, bool)  { return nil, false }
