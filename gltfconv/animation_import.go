package gltfconv

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
)

const timeMergeEpsilon = 1e-5

// addToTimeMap merges a sorted times array into the global sorted
// timeline, treating values within epsilon as the same timepoint.
func addToTimeMap(globalTimes []float32, times []float32) []float32 {
	i := 0
	for j := 0; j < len(globalTimes) && i < len(times); j++ {
		delta := times[i] - globalTimes[j]
		if delta < 0 {
			delta = -delta
		}
		switch {
		case delta <= timeMergeEpsilon:
			i++
		case times[i] < globalTimes[j]:
			globalTimes = append(globalTimes, 0)
			copy(globalTimes[j+1:], globalTimes[j:])
			globalTimes[j] = times[i]
			i++
		}
	}
	return append(globalTimes, times[i:]...)
}

// interpolationWindow finds the sample pair straddling t and the
// clamped interpolation factor between them.
func interpolationWindow(times []float32, w0, w1 int, t float32) (int, int, float32) {
	for t > times[w1] && w1+1 < len(times) {
		w0++
		w1++
	}
	t0, t1 := times[w0], times[w1]
	if t < t0 {
		t = t0
	}
	if t > t1 {
		t = t1
	}
	if t1 == t0 {
		return w0, w1, 0
	}
	return w0, w1, (t - t0) / (t1 - t0)
}

func interpolateVec3(globalTimes, times []float32, values []mgl32.Vec3, out []mgl32.Vec3) {
	w0, w1 := 0, 1
	for i, t := range globalTimes {
		var s float32
		w0, w1, s = interpolationWindow(times, w0, w1, t)
		out[i] = values[w1].Sub(values[w0]).Mul(s).Add(values[w0])
	}
}

// interpolateQuat lerps componentwise, matching the vector tracks.
// Consumers renormalize when they build transforms.
func interpolateQuat(globalTimes, times []float32, values []mgl32.Quat, out []mgl32.Quat) {
	w0, w1 := 0, 1
	for i, t := range globalTimes {
		var s float32
		w0, w1, s = interpolationWindow(times, w0, w1, t)
		v0, v1 := values[w0], values[w1]
		out[i] = mgl32.Quat{
			W: v0.W + (v1.W-v0.W)*s,
			V: mgl32.Vec3{
				v0.V[0] + (v1.V[0]-v0.V[0])*s,
				v0.V[1] + (v1.V[1]-v0.V[1])*s,
				v0.V[2] + (v1.V[2]-v0.V[2])*s,
			},
		}
	}
}

func (c *importContext) readChannelTimes(accessorIndex int) []float32 {
	count := AccessorElementCount(c.doc, accessorIndex)
	if count == 0 {
		return nil
	}
	times := make([]float32, count)
	if err := ReadAccessorFloats(c.doc, accessorIndex, times); err != nil {
		c.warnf("cannot read animation times: %v", err)
		return nil
	}
	return times
}

func (c *importContext) readChannelVec3s(accessorIndex int) []mgl32.Vec3 {
	count := AccessorElementCount(c.doc, accessorIndex)
	if count == 0 {
		return nil
	}
	raw := make([]float32, count*3)
	if err := ReadAccessorFloats(c.doc, accessorIndex, raw); err != nil {
		c.warnf("cannot read animation samples: %v", err)
		return nil
	}
	values := make([]mgl32.Vec3, count)
	for i := range values {
		values[i] = mgl32.Vec3{raw[i*3], raw[i*3+1], raw[i*3+2]}
	}
	return values
}

func (c *importContext) readChannelQuats(accessorIndex int) []mgl32.Quat {
	count := AccessorElementCount(c.doc, accessorIndex)
	if count == 0 {
		return nil
	}
	raw := make([]float32, count*4)
	if err := ReadAccessorFloats(c.doc, accessorIndex, raw); err != nil {
		c.warnf("cannot read animation samples: %v", err)
		return nil
	}
	values := make([]mgl32.Quat, count)
	for i := range values {
		values[i] = mgl32.Quat{
			W: raw[i*4+3],
			V: mgl32.Vec3{raw[i*4], raw[i*4+1], raw[i*4+2]},
		}
	}
	return values
}

// importAnimationTracks reserves one named track per glTF animation.
// Time ranges fill in as the channels are read.
func (c *importContext) importAnimationTracks() {
	c.scene.AnimationTracks = make([]scene.AnimationTrack, len(c.doc.Animations))
	for i, animation := range c.doc.Animations {
		c.scene.AnimationTracks[i] = scene.AnimationTrack{
			Name:    animation.Name,
			MinTime: math.MaxInt32,
		}
	}
}

// importNodeAnimations reads every channel onto its target node, one
// NodeAnimation slot per track.
func (c *importContext) importNodeAnimations() {
	for trackIndex, animation := range c.doc.Animations {
		track := &c.scene.AnimationTracks[trackIndex]

		for _, channel := range animation.Channels {
			if channel.Sampler == nil || channel.Target.Node == nil {
				continue
			}
			sampler := animation.Samplers[*channel.Sampler]
			if sampler.Input == nil || sampler.Output == nil {
				continue
			}
			node := &c.scene.Nodes[c.nodeMap[int(*channel.Target.Node)]]

			times := c.readChannelTimes(int(*sampler.Input))
			if len(times) == 0 {
				continue
			}

			hadAnimations := len(node.Animations) > 0
			if !hadAnimations {
				node.Animations = make([]scene.NodeAnimation, len(c.scene.AnimationTracks))
			}
			na := &node.Animations[trackIndex]

			hasChannel := true
			switch channel.Target.Path {
			case gltf.TRSTranslation:
				na.Translations.Times = append(na.Translations.Times, times...)
				na.Translations.Values = append(na.Translations.Values,
					c.readChannelVec3s(int(*sampler.Output))...)
			case gltf.TRSRotation:
				na.Rotations.Times = append(na.Rotations.Times, times...)
				na.Rotations.Values = append(na.Rotations.Values,
					c.readChannelQuats(int(*sampler.Output))...)
			case gltf.TRSScale:
				na.Scales.Times = append(na.Scales.Times, times...)
				na.Scales.Values = append(na.Scales.Values,
					c.readChannelVec3s(int(*sampler.Output))...)
			case gltf.TRSWeights:
				c.warnf("blend weight animation is not supported")
				hasChannel = false
			default:
				hasChannel = false
			}

			if hasChannel {
				track.HasTimepoints = true
				c.scene.HasAnimations = true
				if times[0] < track.MinTime {
					track.MinTime = times[0]
				}
				if last := times[len(times)-1]; last > track.MaxTime {
					track.MaxTime = last
				}
			} else if !hadAnimations {
				node.Animations = nil
			}
		}
	}
}

// importSkeletonAnimations resamples the joint node animations onto a
// merged per-track timeline and transposes them into time-major
// skeleton animations.
func (c *importContext) importSkeletonAnimations() {
	if len(c.doc.Skins) == 0 {
		return
	}

	animatedNodeSet := make(map[int]bool)
	for _, animation := range c.doc.Animations {
		for _, channel := range animation.Channels {
			if channel.Target.Node == nil {
				continue
			}
			nodeIndex := int(*channel.Target.Node)
			if !c.scene.Nodes[c.nodeMap[nodeIndex]].IsJoint {
				continue
			}
			animatedNodeSet[nodeIndex] = true
		}
	}
	if len(animatedNodeSet) == 0 {
		return
	}

	for skinIndex, skin := range c.doc.Skins {
		skeleton := &c.scene.Skeletons[skinIndex]

		var skelAnimNodes []int
		for _, joint := range skin.Joints {
			if animatedNodeSet[int(joint)] {
				skelAnimNodes = append(skelAnimNodes, int(joint))
			}
		}
		if len(skelAnimNodes) == 0 {
			continue
		}

		skeleton.Animations = make([]int, len(c.scene.AnimationTracks))
		skeleton.AnimatedJoints = make([]string, len(skelAnimNodes))
		for j, nodeIndex := range skelAnimNodes {
			skeleton.AnimatedJoints[j] = c.scene.Nodes[c.nodeMap[nodeIndex]].Path
		}

		for trackIndex := range c.scene.AnimationTracks {
			skeleton.Animations[trackIndex] = -1
			track := &c.scene.AnimationTracks[trackIndex]

			var definitiveTimes []float32
			for _, nodeIndex := range skelAnimNodes {
				node := &c.scene.Nodes[c.nodeMap[nodeIndex]]
				if trackIndex >= len(node.Animations) {
					continue
				}
				na := &node.Animations[trackIndex]
				definitiveTimes = addToTimeMap(definitiveTimes, na.Rotations.Times)
				definitiveTimes = addToTimeMap(definitiveTimes, na.Translations.Times)
				definitiveTimes = addToTimeMap(definitiveTimes, na.Scales.Times)
			}
			if len(definitiveTimes) == 0 {
				continue
			}
			track.HasTimepoints = true
			c.scene.HasAnimations = true
			if definitiveTimes[0] < track.MinTime {
				track.MinTime = definitiveTimes[0]
			}
			if last := definitiveTimes[len(definitiveTimes)-1]; last > track.MaxTime {
				track.MaxTime = last
			}

			rotations := make([][]mgl32.Quat, len(skelAnimNodes))
			translations := make([][]mgl32.Vec3, len(skelAnimNodes))
			scales := make([][]mgl32.Vec3, len(skelAnimNodes))
			for j, nodeIndex := range skelAnimNodes {
				node := &c.scene.Nodes[c.nodeMap[nodeIndex]]
				var na scene.NodeAnimation
				if trackIndex < len(node.Animations) {
					na = node.Animations[trackIndex]
				}

				rotations[j] = make([]mgl32.Quat, len(definitiveTimes))
				if len(na.Rotations.Values) > 1 {
					interpolateQuat(definitiveTimes, na.Rotations.Times, na.Rotations.Values, rotations[j])
				} else {
					for k := range rotations[j] {
						rotations[j][k] = node.Rotation
					}
				}

				translations[j] = make([]mgl32.Vec3, len(definitiveTimes))
				if len(na.Translations.Values) > 1 {
					interpolateVec3(definitiveTimes, na.Translations.Times, na.Translations.Values, translations[j])
				} else {
					rest := mgl32.Vec3{
						float32(node.Translation[0]),
						float32(node.Translation[1]),
						float32(node.Translation[2]),
					}
					for k := range translations[j] {
						translations[j][k] = rest
					}
				}

				scales[j] = make([]mgl32.Vec3, len(definitiveTimes))
				if len(na.Scales.Values) > 1 {
					interpolateVec3(definitiveTimes, na.Scales.Times, na.Scales.Values, scales[j])
				} else {
					for k := range scales[j] {
						scales[j][k] = node.Scale
					}
				}
			}

			animIndex, anim := c.scene.AddAnimation()
			skeleton.Animations[trackIndex] = animIndex
			anim.Name = track.Name
			anim.Joints = skeleton.AnimatedJoints
			anim.Times = definitiveTimes
			anim.Rotations = make([][]mgl32.Quat, len(definitiveTimes))
			anim.Translations = make([][]mgl32.Vec3, len(definitiveTimes))
			anim.Scales = make([][]mgl32.Vec3, len(definitiveTimes))
			for k := range definitiveTimes {
				anim.Rotations[k] = make([]mgl32.Quat, len(skelAnimNodes))
				anim.Translations[k] = make([]mgl32.Vec3, len(skelAnimNodes))
				anim.Scales[k] = make([]mgl32.Vec3, len(skelAnimNodes))
				for j := range skelAnimNodes {
					anim.Rotations[k][j] = rotations[j][k]
					anim.Translations[k][j] = translations[j][k]
					anim.Scales[k][j] = scales[j][k]
				}
			}
		}
	}
}
