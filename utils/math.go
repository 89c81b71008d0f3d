package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// DecomposeMat4 factors an affine matrix into translation, rotation and
// scale, applied scale-first. A negative determinant folds the flip
// into the x scale.
func DecomposeMat4(m mgl64.Mat4) (t mgl64.Vec3, r mgl64.Quat, s mgl64.Vec3) {
	t = mgl64.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}

	c0 := mgl64.Vec3{m.At(0, 0), m.At(1, 0), m.At(2, 0)}
	c1 := mgl64.Vec3{m.At(0, 1), m.At(1, 1), m.At(2, 1)}
	c2 := mgl64.Vec3{m.At(0, 2), m.At(1, 2), m.At(2, 2)}

	s = mgl64.Vec3{c0.Len(), c1.Len(), c2.Len()}
	if m.Det() < 0 {
		s[0] = -s[0]
	}

	invS := mgl64.Vec3{1, 1, 1}
	for i := 0; i < 3; i++ {
		if s[i] != 0 {
			invS[i] = 1 / s[i]
		}
	}
	rot := mgl64.Mat4{
		c0[0] * invS[0], c0[1] * invS[0], c0[2] * invS[0], 0,
		c1[0] * invS[1], c1[1] * invS[1], c1[2] * invS[1], 0,
		c2[0] * invS[2], c2[1] * invS[2], c2[2] * invS[2], 0,
		0, 0, 0, 1,
	}
	r = mgl64.Mat4ToQuat(rot).Normalize()
	return t, r, s
}

// TRSToMat4 composes translation * rotation * scale.
func TRSToMat4(t mgl64.Vec3, r mgl64.Quat, s mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

func QuatF32(q mgl64.Quat) mgl32.Quat {
	return mgl32.Quat{
		W: float32(q.W),
		V: mgl32.Vec3{float32(q.V[0]), float32(q.V[1]), float32(q.V[2])},
	}
}

func QuatF64(q mgl32.Quat) mgl64.Quat {
	return mgl64.Quat{
		W: float64(q.W),
		V: mgl64.Vec3{float64(q.V[0]), float64(q.V[1]), float64(q.V[2])},
	}
}

func Vec3F32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func Vec3F64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func Mat4F32(m mgl64.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i := 0; i < 16; i++ {
		out[i] = float32(m[i])
	}
	return out
}

func Mat4F64(m mgl32.Mat4) mgl64.Mat4 {
	var out mgl64.Mat4
	for i := 0; i < 16; i++ {
		out[i] = float64(m[i])
	}
	return out
}

// FrobeniusDistance is the elementwise L2 distance of two matrices.
func FrobeniusDistance(a, b mgl64.Mat4) float64 {
	sum := 0.0
	for i := 0; i < 16; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func Clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
