package gltfconv

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io/ioutil"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/gltfbridge/3rdparty/half"
	"github.com/mogaika/gltfbridge/scene"
)

// unpackBase64Field decodes a base64 string, optionally zlib wrapped.
func unpackBase64Field(s string, compressed bool) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "base64 decode")
	}
	if !compressed {
		return data, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "zlib header")
	}
	defer zr.Close()
	out, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "zlib inflate")
	}
	return out, nil
}

func packBase64Field(data []byte, compressed bool) string {
	if compressed {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write(data)
		zw.Close()
		data = buf.Bytes()
	}
	return base64.StdEncoding.EncodeToString(data)
}

// unpackMLPWeight reorders a d1 x d2 weight matrix stored as 4x4
// blocks into row-major order.
func unpackMLPWeight(in, out []float32, d1, d2 int) {
	numColMat := d1 / 4
	numRowMat := d2 / 4
	for i := 0; i < numColMat; i++ {
		for j := 0; j < numRowMat; j++ {
			for k := 0; k < 4; k++ {
				for l := 0; l < 4; l++ {
					inIdx := (((i*numRowMat+j)*4)+k)*4 + l
					outIdx := ((i*4+k)*numRowMat+j)*4 + l
					out[outIdx] = in[inIdx]
				}
			}
		}
	}
}

func packMLPWeight(in, out []float32, d1, d2 int) {
	numColMat := d1 / 4
	numRowMat := d2 / 4
	for i := 0; i < numColMat; i++ {
		for k := 0; k < 4; k++ {
			for j := 0; j < numRowMat; j++ {
				for l := 0; l < 4; l++ {
					inIdx := ((i*4+k)*numRowMat+j)*4 + l
					outIdx := (((i*numRowMat+j)*4)+k)*4 + l
					out[outIdx] = in[inIdx]
				}
			}
		}
	}
}

func bytesToFloats(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// xRotation builds a rotation about the X axis by the given degrees.
func xRotation(degrees float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DX(mgl64.DegToRad(degrees))
}

// importNGPField reads one raw float array field, optionally
// reordering it as an MLP weight matrix of shape d1 x d2.
func (c *importContext) importNGPField(ext ExtValue, name string, dst *[]float32, d1, d2 int) {
	s, ok := ext.Get(name).Text()
	if !ok {
		return
	}
	data, err := unpackBase64Field(s, false)
	if err != nil {
		c.warnf("ngp field %q: %v", name, err)
		return
	}
	values := bytesToFloats(data)
	if d1 == 0 || d2 == 0 {
		*dst = values
		return
	}
	*dst = make([]float32, len(values))
	unpackMLPWeight(values, *dst, d1, d2)
}

// importNGPExtension decodes a neural graphics primitive payload. MLP
// weights travel as raw little-endian floats, the hash grid as zlib
// compressed halves, and the density and distance grids as 8-bit
// quantized bytes against a stored maximum.
func (c *importContext) importNGPExtension(ext ExtValue, ngp *scene.NGPData) {
	c.importNGPField(ext, "spatial_mlp_l0_weight", &ngp.DensityMLPLayer0Weight, 24, 32)
	c.importNGPField(ext, "spatial_mlp_l0_bias", &ngp.DensityMLPLayer0Bias, 0, 0)
	c.importNGPField(ext, "spatial_mlp_l1_weight", &ngp.DensityMLPLayer1Weight, 16, 24)
	c.importNGPField(ext, "spatial_mlp_l1_bias", &ngp.DensityMLPLayer1Bias, 0, 0)
	c.importNGPField(ext, "vdep_mlp_l0_weight", &ngp.ColorMLPLayer0Weight, 24, 36)
	c.importNGPField(ext, "vdep_mlp_l0_bias", &ngp.ColorMLPLayer0Bias, 0, 0)
	c.importNGPField(ext, "vdep_mlp_l1_weight", &ngp.ColorMLPLayer1Weight, 24, 24)
	c.importNGPField(ext, "vdep_mlp_l1_bias", &ngp.ColorMLPLayer1Bias, 0, 0)
	c.importNGPField(ext, "vdep_mlp_l2_weight", &ngp.ColorMLPLayer2Weight, 4, 24)
	c.importNGPField(ext, "vdep_mlp_l2_bias", &ngp.ColorMLPLayer2Bias, 0, 0)

	if s, ok := ext.Get("density").Text(); ok {
		if densityMax, okMax := ext.Get("density_max").Number(); okMax {
			if data, err := unpackBase64Field(s, true); err != nil {
				c.warnf("ngp density grid: %v", err)
			} else {
				ngp.DensityGrid = make([]float32, len(data))
				for i, b := range data {
					ngp.DensityGrid[i] = float32(b) * float32(densityMax) / 255.0
				}
			}
		}
	}

	if s, ok := ext.Get("distance_grid").Text(); ok {
		if distanceMax, okMax := ext.Get("distance_max").Number(); okMax {
			if data, err := unpackBase64Field(s, true); err != nil {
				c.warnf("ngp distance grid: %v", err)
			} else {
				ngp.DistanceGrid = make([]float32, len(data))
				for i, b := range data {
					sqrtVal := float32(b) / 255.0
					ngp.DistanceGrid[i] = sqrtVal * sqrtVal * float32(distanceMax)
				}
			}
		}
	}

	if s, ok := ext.Get("hash_grid").Text(); ok {
		if data, err := unpackBase64Field(s, true); err != nil {
			c.warnf("ngp hash grid: %v", err)
		} else {
			ngp.HashGrid = make([]float32, len(data)/2)
			for i := range ngp.HashGrid {
				h := half.Float16(binary.LittleEndian.Uint16(data[i*2:]))
				ngp.HashGrid[i] = h.Float32()
			}
		}
	}

	if threshold, ok := ext.Get("sigma_threshold").Number(); ok {
		ngp.DensityThreshold = float32(threshold)
	}
	if res, ok := ext.Get("hash_grid_res").IntArray(); ok {
		ngp.HashGridResolution = res
	}

	// The payload is Z-up, rotate to Y-up.
	ngp.HasTransform = true
	ngp.Transform = xRotation(-90)
}

func maxOfFloats(values []float32) float32 {
	var max float32
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}

func clampByte(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func (c *exportContext) exportNGPFloatField(obj map[string]interface{}, name string, src []float32, d1, d2 int) {
	// Fields absent on import stay absent on export.
	if len(src) == 0 {
		return
	}
	values := src
	if d1 != 0 && d2 != 0 {
		values = make([]float32, len(src))
		packMLPWeight(src, values, d1, d2)
	}
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	obj[name] = packBase64Field(data, false)
	obj[name+"_shape"] = []int{len(src)}
}

// exportNGPExtension encodes the payload back to the wire layout and
// returns the spatial transform to bake into the owning node: the
// Z-up correction composed with the stored transform, or nil when the
// product is identity.
func (c *exportContext) exportNGPExtension(ngp *scene.NGPData) (json.RawMessage, *mgl64.Mat4) {
	obj := make(map[string]interface{})

	c.exportNGPFloatField(obj, "spatial_mlp_l0_weight", ngp.DensityMLPLayer0Weight, 24, 32)
	c.exportNGPFloatField(obj, "spatial_mlp_l0_bias", ngp.DensityMLPLayer0Bias, 0, 0)
	c.exportNGPFloatField(obj, "spatial_mlp_l1_weight", ngp.DensityMLPLayer1Weight, 16, 24)
	c.exportNGPFloatField(obj, "spatial_mlp_l1_bias", ngp.DensityMLPLayer1Bias, 0, 0)
	c.exportNGPFloatField(obj, "vdep_mlp_l0_weight", ngp.ColorMLPLayer0Weight, 24, 36)
	c.exportNGPFloatField(obj, "vdep_mlp_l0_bias", ngp.ColorMLPLayer0Bias, 0, 0)
	c.exportNGPFloatField(obj, "vdep_mlp_l1_weight", ngp.ColorMLPLayer1Weight, 24, 24)
	c.exportNGPFloatField(obj, "vdep_mlp_l1_bias", ngp.ColorMLPLayer1Bias, 0, 0)
	c.exportNGPFloatField(obj, "vdep_mlp_l2_weight", ngp.ColorMLPLayer2Weight, 4, 24)
	c.exportNGPFloatField(obj, "vdep_mlp_l2_bias", ngp.ColorMLPLayer2Bias, 0, 0)

	hashGridData := make([]byte, len(ngp.HashGrid)*2)
	for i, v := range ngp.HashGrid {
		binary.LittleEndian.PutUint16(hashGridData[i*2:], uint16(half.NewFloat16(v)))
	}
	obj["hash_grid"] = packBase64Field(hashGridData, true)
	obj["hash_grid_res"] = ngp.HashGridResolution
	// 8 levels of 524288 entries, 4 channels per entry.
	obj["hash_grid_shape"] = []int{8, 524288, 4}

	maxDistance := maxOfFloats(ngp.DistanceGrid)
	distanceData := make([]byte, len(ngp.DistanceGrid))
	for i, v := range ngp.DistanceGrid {
		distanceData[i] = clampByte(float32(math.Sqrt(float64(v/maxDistance))) * 255.0)
	}
	obj["distance_grid"] = packBase64Field(distanceData, true)
	obj["distance_max"] = maxDistance
	obj["distance_grid_shape"] = []int{128, 128, 128}

	maxDensity := maxOfFloats(ngp.DensityGrid)
	densityData := make([]byte, len(ngp.DensityGrid))
	for i, v := range ngp.DensityGrid {
		densityData[i] = clampByte(v / maxDensity * 255.0)
	}
	obj["density"] = packBase64Field(densityData, true)
	obj["density_max"] = maxDensity
	obj["sigma_threshold"] = ngp.DensityThreshold
	obj["density_shape"] = []int{512, 512, 512}

	payload, err := json.Marshal(obj)
	if err != nil {
		c.warnf("cannot encode ngp payload: %v", err)
		return nil, nil
	}

	// Rotate back from Y-up to the Z-up wire space.
	transform := xRotation(90)
	if ngp.HasTransform {
		transform = ngp.Transform.Mul4(transform)
	}
	if transform.ApproxEqual(mgl64.Ident4()) {
		return payload, nil
	}
	return payload, &transform
}
