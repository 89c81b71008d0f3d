package gltfconv

import (
	"math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAccessorPadding(t *testing.T) {
	doc := gltf.NewDocument()

	// 3 ushort indices leave the buffer at 6 bytes; the next accessor
	// must start at the 8-byte mark.
	first, err := AddAccessor(doc, "ind", gltf.TargetElementArrayBuffer,
		gltf.AccessorScalar, gltf.ComponentUshort, 3, uint16sToBytes([]uint16{0, 1, 2}), false)
	require.NoError(t, err)
	second, err := AddAccessor(doc, "pos", gltf.TargetArrayBuffer,
		gltf.AccessorScalar, gltf.ComponentFloat, 2, floatsToBytes([]float32{1, 2}), false)
	require.NoError(t, err)

	assert.EqualValues(t, 0, doc.BufferViews[*doc.Accessors[first].BufferView].ByteOffset)
	assert.EqualValues(t, 8, doc.BufferViews[*doc.Accessors[second].BufferView].ByteOffset)
	assert.EqualValues(t, len(doc.Buffers[0].Data), doc.Buffers[0].ByteLength)
}

func TestAddAccessorSanitizesAndRanges(t *testing.T) {
	doc := gltf.NewDocument()

	src := []float32{1, float32(math.NaN()), -3, float32(math.Inf(1)), 5, 0}
	index, err := AddAccessor(doc, "pos", gltf.TargetArrayBuffer,
		gltf.AccessorVec3, gltf.ComponentFloat, 2, floatsToBytes(src), true)
	require.NoError(t, err)

	// Component-wise over the sanitized elements (1,0,-3) and (0,5,0).
	accessor := doc.Accessors[index]
	assert.Equal(t, []float32{0, 0, -3}, accessor.Min)
	assert.Equal(t, []float32{1, 5, 0}, accessor.Max)

	got := make([]float32, 6)
	require.NoError(t, ReadAccessorFloats(doc, index, got))
	assert.Equal(t, []float32{1, 0, -3, 0, 5, 0}, got)
}

func TestReadAccessorFloatsNormalized(t *testing.T) {
	for _, c := range []struct {
		name string
		comp gltf.ComponentType
		src  []byte
		want []float32
	}{
		{"ubyte", gltf.ComponentUbyte, []byte{0, 127, 255, 0}, []float32{0, 127.0 / 255.0, 1, 0}},
		{"byte", gltf.ComponentByte, []byte{0x80, 0x7f, 0, 1}, []float32{-1, 1, 0, 1.0 / 127.0}},
		{"ushort", gltf.ComponentUshort, uint16sToBytes([]uint16{0, 0xffff, 0x8000, 1}),
			[]float32{0, 1, 32768.0 / 65535.0, 1.0 / 65535.0}},
	} {
		t.Run(c.name, func(t *testing.T) {
			doc := gltf.NewDocument()
			index, err := AddAccessor(doc, c.name, gltf.TargetArrayBuffer,
				gltf.AccessorVec2, c.comp, 2, c.src, false)
			require.NoError(t, err)
			doc.Accessors[index].Normalized = true

			got := make([]float32, 4)
			require.NoError(t, ReadAccessorFloats(doc, index, got))
			for i := range c.want {
				assert.InDelta(t, c.want[i], got[i], 1e-6)
			}
		})
	}
}

func TestReadAccessorFloatsUnsupported(t *testing.T) {
	doc := gltf.NewDocument()
	index, err := AddAccessor(doc, "u32", gltf.TargetArrayBuffer,
		gltf.AccessorScalar, gltf.ComponentUint, 2, uint32sToBytes([]uint32{1, 2}), false)
	require.NoError(t, err)

	got := make([]float32, 2)
	err = ReadAccessorFloats(doc, index, got)
	assert.ErrorIs(t, err, ErrUnsupportedConversion)
}

func TestReadAccessorIntsWidening(t *testing.T) {
	doc := gltf.NewDocument()
	byIndex := map[int][]int{}

	index, err := AddAccessor(doc, "u8", gltf.TargetElementArrayBuffer,
		gltf.AccessorScalar, gltf.ComponentUbyte, 3, []byte{0, 200, 255}, false)
	require.NoError(t, err)
	byIndex[index] = []int{0, 200, 255}

	index, err = AddAccessor(doc, "u16", gltf.TargetElementArrayBuffer,
		gltf.AccessorScalar, gltf.ComponentUshort, 3, uint16sToBytes([]uint16{0, 1000, 65535}), false)
	require.NoError(t, err)
	byIndex[index] = []int{0, 1000, 65535}

	index, err = AddAccessor(doc, "u32", gltf.TargetElementArrayBuffer,
		gltf.AccessorScalar, gltf.ComponentUint, 3, uint32sToBytes([]uint32{0, 70000, 1 << 20}), false)
	require.NoError(t, err)
	byIndex[index] = []int{0, 70000, 1 << 20}

	for accessorIndex, want := range byIndex {
		got := make([]int, len(want))
		require.NoError(t, ReadAccessorInts(doc, accessorIndex, got))
		assert.Equal(t, want, got)
	}
}

func TestReadAccessorStrided(t *testing.T) {
	doc := gltf.NewDocument()

	// Interleaved position (vec3) and uv (vec2), stride 20.
	interleaved := floatsToBytes([]float32{
		1, 2, 3, 0.5, 0.5,
		4, 5, 6, 0.25, 0.75,
	})
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{
		Data: interleaved, ByteLength: uint32(len(interleaved)),
	})
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer: 0, ByteLength: uint32(len(interleaved)), ByteStride: 20,
	})
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat,
		Count: 2, Type: gltf.AccessorVec3,
	}, &gltf.Accessor{
		BufferView: gltf.Index(0), ByteOffset: 12, ComponentType: gltf.ComponentFloat,
		Count: 2, Type: gltf.AccessorVec2,
	})

	positions := make([]float32, 6)
	require.NoError(t, ReadAccessorFloats(doc, 0, positions))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, positions)

	uvs := make([]float32, 4)
	require.NoError(t, ReadAccessorFloats(doc, 1, uvs))
	assert.Equal(t, []float32{0.5, 0.5, 0.25, 0.75}, uvs)
}

func TestReadAccessorOutOfRange(t *testing.T) {
	doc := gltf.NewDocument()
	err := ReadAccessorBytes(doc, 3, make([]byte, 4))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}
