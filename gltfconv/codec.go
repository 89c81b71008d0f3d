package gltfconv

import (
	"encoding/binary"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// The accessor/buffer codec: every typed view over packed binary data,
// both directions, goes through this file. Writes append to the default
// buffer of the document with 4-byte alignment; reads honor bufferView
// strides and the normalized-integer widening rules.

func componentSize(c gltf.ComponentType) int {
	switch c {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4
	}
	return 0
}

func componentCount(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 0
}

// defaultBuffer returns buffer 0, creating it on first use.
func defaultBuffer(doc *gltf.Document) *gltf.Buffer {
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	}
	return doc.Buffers[0]
}

// padBuffer appends undefined bytes until the buffer length is 4-byte
// aligned and returns the aligned offset.
func padBuffer(buffer *gltf.Buffer) int {
	if extra := len(buffer.Data) % 4; extra != 0 {
		buffer.Data = append(buffer.Data, make([]byte, 4-extra)...)
	}
	return len(buffer.Data)
}

// AddAccessor appends a bufferView holding src to the default buffer
// and creates an accessor describing it. Float payloads are sanitized:
// non-finite values become zero with a single warning per accessor.
// When withRange is set the component-wise min/max of the sanitized
// data is stored on the accessor.
func AddAccessor(doc *gltf.Document, name string, target gltf.Target,
	typ gltf.AccessorType, comp gltf.ComponentType, elementCount int,
	src []byte, withRange bool) (int, error) {

	if elementCount <= 0 {
		return -1, errors.Wrapf(ErrInvalidSize, "accessor %q has element count %d", name, elementCount)
	}

	buffer := defaultBuffer(doc)
	offset := padBuffer(buffer)
	byteLength := componentSize(comp) * componentCount(typ) * elementCount
	buffer.Data = append(buffer.Data, src[:byteLength]...)
	written := buffer.Data[offset : offset+byteLength]

	if comp == gltf.ComponentFloat {
		if sanitizeFloats(written) {
			log.Printf("[gltf] float data for %q had non-finite values, replaced with zero", name)
		}
	}
	buffer.ByteLength = uint32(len(buffer.Data))

	bufferViewIndex := uint32(len(doc.BufferViews))
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(offset),
		ByteLength: uint32(byteLength),
		Target:     target,
	})

	accessor := &gltf.Accessor{
		Name:          name,
		BufferView:    gltf.Index(bufferViewIndex),
		ComponentType: comp,
		Count:         uint32(elementCount),
		Type:          typ,
	}
	if withRange {
		// The range is computed on the freshly written bytes so it
		// reflects sanitized values.
		min, max := computeRange(written, comp, componentCount(typ))
		accessor.Min = min
		accessor.Max = max
	}
	doc.Accessors = append(doc.Accessors, accessor)
	return len(doc.Accessors) - 1, nil
}

// AddImageBufferView appends an image payload with the same alignment
// rules, without creating an accessor.
func AddImageBufferView(doc *gltf.Document, name string, data []byte) int {
	buffer := defaultBuffer(doc)
	offset := padBuffer(buffer)
	buffer.Data = append(buffer.Data, data...)
	buffer.ByteLength = uint32(len(buffer.Data))

	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(offset),
		ByteLength: uint32(len(data)),
	})
	return len(doc.BufferViews) - 1
}

// sanitizeFloats zeroes non-finite float32 values in place.
func sanitizeFloats(data []byte) bool {
	found := false
	for i := 0; i+4 <= len(data); i += 4 {
		bits := binary.LittleEndian.Uint32(data[i:])
		f := math.Float32frombits(bits)
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			binary.LittleEndian.PutUint32(data[i:], 0)
			found = true
		}
	}
	return found
}

// computeRange reduces the min/max per component. Integer data is
// widened through float64 so it can be consumed symmetrically by later
// float readers.
func computeRange(data []byte, comp gltf.ComponentType, components int) (min, max []float32) {
	minV := make([]float64, components)
	maxV := make([]float64, components)
	for i := range minV {
		minV[i] = math.MaxFloat64
		maxV[i] = -math.MaxFloat64
	}

	size := componentSize(comp)
	entries := len(data) / size
	for i := 0; i < entries; i++ {
		v := componentAsFloat64(data[i*size:], comp)
		j := i % components
		if v < minV[j] {
			minV[j] = v
		}
		if v > maxV[j] {
			maxV[j] = v
		}
	}

	min = make([]float32, components)
	max = make([]float32, components)
	for i := 0; i < components; i++ {
		min[i] = float32(minV[i])
		max[i] = float32(maxV[i])
	}
	return min, max
}

func componentAsFloat64(data []byte, comp gltf.ComponentType) float64 {
	switch comp {
	case gltf.ComponentByte:
		return float64(int8(data[0]))
	case gltf.ComponentUbyte:
		return float64(data[0])
	case gltf.ComponentShort:
		return float64(int16(binary.LittleEndian.Uint16(data)))
	case gltf.ComponentUshort:
		return float64(binary.LittleEndian.Uint16(data))
	case gltf.ComponentUint:
		return float64(binary.LittleEndian.Uint32(data))
	case gltf.ComponentFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data)))
	}
	return 0
}

func accessorValid(doc *gltf.Document, accessorIndex int) bool {
	return accessorIndex >= 0 && accessorIndex < len(doc.Accessors)
}

// AccessorElementCount is 0 for out-of-range indices, so callers can
// size destination slices without a separate bounds check.
func AccessorElementCount(doc *gltf.Document, accessorIndex int) int {
	if !accessorValid(doc, accessorIndex) {
		return 0
	}
	return int(doc.Accessors[accessorIndex].Count)
}

// accessorStride resolves the source pointer and stride of an accessor.
func accessorSource(doc *gltf.Document, accessor *gltf.Accessor) (src []byte, stride int, elementSize int) {
	elementSize = componentSize(accessor.ComponentType) * componentCount(accessor.Type)
	stride = elementSize
	if accessor.BufferView == nil {
		return nil, stride, elementSize
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	if bufferView.ByteStride > 0 {
		stride = int(bufferView.ByteStride)
	}
	buffer := doc.Buffers[bufferView.Buffer]
	offset := int(bufferView.ByteOffset) + int(accessor.ByteOffset)
	if offset > len(buffer.Data) {
		return nil, stride, elementSize
	}
	return buffer.Data[offset:], stride, elementSize
}

// ReadAccessorBytes copies count*elementSize bytes from the accessor
// into dst, contiguously when the stride allows and as a strided
// gather otherwise. Out-of-range indices are reported and leave dst
// untouched.
func ReadAccessorBytes(doc *gltf.Document, accessorIndex int, dst []byte) error {
	if !accessorValid(doc, accessorIndex) {
		log.Printf("[gltf] accessor index %d out of range, skipping read", accessorIndex)
		return errors.Wrapf(ErrIndexOutOfRange, "accessor %d", accessorIndex)
	}
	accessor := doc.Accessors[accessorIndex]
	src, stride, elementSize := accessorSource(doc, accessor)
	if src == nil {
		return nil
	}
	count := int(accessor.Count)
	if stride == elementSize {
		copy(dst, src[:count*elementSize])
		return nil
	}
	for i := 0; i < count; i++ {
		copy(dst[i*elementSize:(i+1)*elementSize], src[i*stride:i*stride+elementSize])
	}
	return nil
}

func normalizedSigned(v, typeMin, typeMax float32) float32 {
	if v < 0 {
		return -v / typeMin
	}
	return v / typeMax
}

// ReadAccessorFloats widens the accessor data into dst. Integer
// components are converted per the accessor's normalized flag; float
// components pass through. Uint and double sources are not supported
// on this path.
func ReadAccessorFloats(doc *gltf.Document, accessorIndex int, dst []float32) error {
	if !accessorValid(doc, accessorIndex) {
		return errors.Wrapf(ErrIndexOutOfRange, "accessor %d", accessorIndex)
	}
	accessor := doc.Accessors[accessorIndex]
	src, stride, _ := accessorSource(doc, accessor)
	if src == nil {
		return nil
	}
	count := int(accessor.Count)
	components := componentCount(accessor.Type)
	normalized := accessor.Normalized

	switch accessor.ComponentType {
	case gltf.ComponentFloat:
		for i := 0; i < count; i++ {
			row := src[i*stride:]
			for j := 0; j < components; j++ {
				dst[i*components+j] = math.Float32frombits(binary.LittleEndian.Uint32(row[j*4:]))
			}
		}
	case gltf.ComponentByte:
		for i := 0; i < count; i++ {
			row := src[i*stride:]
			for j := 0; j < components; j++ {
				v := float32(int8(row[j]))
				if normalized {
					v = normalizedSigned(v, math.MinInt8, math.MaxInt8)
				}
				dst[i*components+j] = v
			}
		}
	case gltf.ComponentUbyte:
		for i := 0; i < count; i++ {
			row := src[i*stride:]
			for j := 0; j < components; j++ {
				v := float32(row[j])
				if normalized {
					v /= math.MaxUint8
				}
				dst[i*components+j] = v
			}
		}
	case gltf.ComponentShort:
		for i := 0; i < count; i++ {
			row := src[i*stride:]
			for j := 0; j < components; j++ {
				v := float32(int16(binary.LittleEndian.Uint16(row[j*2:])))
				if normalized {
					v = normalizedSigned(v, math.MinInt16, math.MaxInt16)
				}
				dst[i*components+j] = v
			}
		}
	case gltf.ComponentUshort:
		for i := 0; i < count; i++ {
			row := src[i*stride:]
			for j := 0; j < components; j++ {
				v := float32(binary.LittleEndian.Uint16(row[j*2:]))
				if normalized {
					v /= math.MaxUint16
				}
				dst[i*components+j] = v
			}
		}
	default:
		return errors.Wrapf(ErrUnsupportedConversion,
			"component type %d of accessor %q cannot widen to float", accessor.ComponentType, accessor.Name)
	}
	return nil
}

// ReadAccessorInts widens integer accessor data into dst, dispatching
// on the component byte size.
func ReadAccessorInts(doc *gltf.Document, accessorIndex int, dst []int) error {
	if !accessorValid(doc, accessorIndex) {
		return errors.Wrapf(ErrIndexOutOfRange, "accessor %d", accessorIndex)
	}
	accessor := doc.Accessors[accessorIndex]
	src, stride, _ := accessorSource(doc, accessor)
	if src == nil {
		return nil
	}
	count := int(accessor.Count)
	components := componentCount(accessor.Type)
	signed := accessor.ComponentType == gltf.ComponentByte || accessor.ComponentType == gltf.ComponentShort

	switch componentSize(accessor.ComponentType) {
	case 1:
		for i := 0; i < count; i++ {
			row := src[i*stride:]
			for j := 0; j < components; j++ {
				if signed {
					dst[i*components+j] = int(int8(row[j]))
				} else {
					dst[i*components+j] = int(row[j])
				}
			}
		}
	case 2:
		for i := 0; i < count; i++ {
			row := src[i*stride:]
			for j := 0; j < components; j++ {
				if signed {
					dst[i*components+j] = int(int16(binary.LittleEndian.Uint16(row[j*2:])))
				} else {
					dst[i*components+j] = int(binary.LittleEndian.Uint16(row[j*2:]))
				}
			}
		}
	case 4:
		for i := 0; i < count; i++ {
			row := src[i*stride:]
			for j := 0; j < components; j++ {
				dst[i*components+j] = int(binary.LittleEndian.Uint32(row[j*4:]))
			}
		}
	default:
		return errors.Wrapf(ErrUnsupportedConversion,
			"component type %d of accessor %q cannot widen to int", accessor.ComponentType, accessor.Name)
	}
	return nil
}

// ReadAccessorMat4s reads float 4x4 matrices (inverse bind matrices).
func ReadAccessorMat4s(doc *gltf.Document, accessorIndex int) ([]mgl32.Mat4, error) {
	count := AccessorElementCount(doc, accessorIndex)
	if count == 0 {
		return nil, nil
	}
	floats := make([]float32, count*16)
	if err := ReadAccessorFloats(doc, accessorIndex, floats); err != nil {
		return nil, err
	}
	out := make([]mgl32.Mat4, count)
	for i := range out {
		copy(out[i][:], floats[i*16:(i+1)*16])
	}
	return out, nil
}

// Typed payload builders for the write path.

func floatsToBytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func uint16sToBytes(values []uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func uint32sToBytes(values []uint32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func vec2sToBytes(values []mgl32.Vec2) []byte {
	flat := make([]float32, 0, len(values)*2)
	for _, v := range values {
		flat = append(flat, v[0], v[1])
	}
	return floatsToBytes(flat)
}

func vec3sToBytes(values []mgl32.Vec3) []byte {
	flat := make([]float32, 0, len(values)*3)
	for _, v := range values {
		flat = append(flat, v[0], v[1], v[2])
	}
	return floatsToBytes(flat)
}

func vec4sToBytes(values []mgl32.Vec4) []byte {
	flat := make([]float32, 0, len(values)*4)
	for _, v := range values {
		flat = append(flat, v[0], v[1], v[2], v[3])
	}
	return floatsToBytes(flat)
}

func quatsToBytes(values []mgl32.Quat) []byte {
	flat := make([]float32, 0, len(values)*4)
	for _, q := range values {
		flat = append(flat, q.V[0], q.V[1], q.V[2], q.W)
	}
	return floatsToBytes(flat)
}

func mat4sToBytes(values []mgl32.Mat4) []byte {
	flat := make([]float32, 0, len(values)*16)
	for _, m := range values {
		flat = append(flat, m[:]...)
	}
	return floatsToBytes(flat)
}
