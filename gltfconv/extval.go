package gltfconv

import (
	"encoding/json"

	"github.com/qmuntal/gltf"
)

// ExtValue wraps one decoded glTF extension payload. The container
// library leaves unregistered extensions as raw JSON, so all access
// goes through typed getters that distinguish a missing member from a
// member of the wrong type.
type ExtValue struct {
	v     interface{}
	valid bool
}

// extensionValue looks up and decodes a named extension from an
// Extensions map.
func extensionValue(ext gltf.Extensions, name string) (ExtValue, bool) {
	raw, ok := ext[name]
	if !ok {
		return ExtValue{}, false
	}
	return wrapExtValue(raw)
}

func wrapExtValue(raw interface{}) (ExtValue, bool) {
	switch v := raw.(type) {
	case json.RawMessage:
		var decoded interface{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			return ExtValue{}, false
		}
		return ExtValue{v: decoded, valid: true}, true
	case []byte:
		var decoded interface{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			return ExtValue{}, false
		}
		return ExtValue{v: decoded, valid: true}, true
	default:
		return ExtValue{v: raw, valid: true}, true
	}
}

func (e ExtValue) Exists() bool { return e.valid }

// Get returns the named object member, or a missing value when e is
// not an object or lacks the member.
func (e ExtValue) Get(key string) ExtValue {
	obj, ok := e.v.(map[string]interface{})
	if !ok {
		return ExtValue{}
	}
	member, ok := obj[key]
	if !ok {
		return ExtValue{}
	}
	return ExtValue{v: member, valid: true}
}

func (e ExtValue) Number() (float64, bool) {
	if !e.valid {
		return 0, false
	}
	switch v := e.v.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	}
	return 0, false
}

func (e ExtValue) NumberOr(def float64) float64 {
	if f, ok := e.Number(); ok {
		return f
	}
	return def
}

func (e ExtValue) Bool() (bool, bool) {
	b, ok := e.v.(bool)
	return b, ok && e.valid
}

func (e ExtValue) Text() (string, bool) {
	s, ok := e.v.(string)
	return s, ok && e.valid
}

// FloatArray reads exactly n numbers; members of the wrong type keep
// their zero value like the rest of the lenient extension parsing.
func (e ExtValue) FloatArray(n int) ([]float64, bool) {
	arr, ok := e.v.([]interface{})
	if !ok || !e.valid || len(arr) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, member := range arr {
		if f, ok := (ExtValue{v: member, valid: true}).Number(); ok {
			out[i] = f
		}
	}
	return out, true
}

func (e ExtValue) IntArray() ([]int, bool) {
	arr, ok := e.v.([]interface{})
	if !ok || !e.valid {
		return nil, false
	}
	out := make([]int, len(arr))
	for i, member := range arr {
		f, ok := (ExtValue{v: member, valid: true}).Number()
		if !ok {
			return nil, false
		}
		out[i] = int(f)
	}
	return out, true
}

// textureRef mirrors a glTF textureInfo JSON object inside an
// extension payload.
type textureRef struct {
	Index      int
	TexCoord   int
	Scale      float64
	Extensions ExtValue
}

// readTextureRef decodes a textureInfo member; Index is -1 when the
// member is absent or malformed.
func readTextureRef(e ExtValue) textureRef {
	ref := textureRef{Index: -1, Scale: 1}
	idx, ok := e.Get("index").Number()
	if !ok {
		return ref
	}
	ref.Index = int(idx)
	ref.TexCoord = int(e.Get("texCoord").NumberOr(0))
	ref.Scale = e.Get("scale").NumberOr(1)
	if ext := e.Get("extensions"); ext.Exists() {
		ref.Extensions = ext
	}
	return ref
}

// extensionsOf converts an extensions JSON object inside a payload to
// a gltf.Extensions map so the shared texture-transform import applies.
func (e ExtValue) extensionsMap() gltf.Extensions {
	obj, ok := e.v.(map[string]interface{})
	if !ok || !e.valid {
		return nil
	}
	out := make(gltf.Extensions, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}
