package filter

import (
	"math"

	"volfields/internal/models"
)

// SignedDistance approximates the signed distance, in physical units, to the
// level (insideValue+outsideValue)/2. Voxels on the insideValue side of the
// level are positive, the rest negative.
//
// Voxels next to a level crossing are seeded with the interpolated distance
// to the crossing along that axis; the seeds are then spread with a separable
// squared Euclidean distance transform. A volume with no crossing has every
// voxel at ±MaxFloat32.
func SignedDistance(vol *models.Volume, insideValue, outsideValue float32) *models.Volume {
	level := (float64(insideValue) + float64(outsideValue)) / 2
	insideHigh := insideValue > outsideValue

	n := len(vol.Data)
	inside := make([]bool, n)
	for i, v := range vol.Data {
		if insideHigh {
			inside[i] = float64(v) > level
		} else {
			inside[i] = float64(v) < level
		}
	}

	sq := make([]float64, n)
	for i := range sq {
		sq[i] = math.Inf(1)
	}
	seeded := seedCrossings(vol, inside, level, sq)

	out := make([]float32, n)
	if !seeded {
		for i := range out {
			out[i] = signed(math.MaxFloat32, inside[i])
		}
		return vol.WithData(out)
	}

	for axis := 0; axis < 3; axis++ {
		transformAxis(vol.Size, axis, vol.Spacing[axis], sq)
	}
	for i, d := range sq {
		out[i] = signed(float32(math.Min(math.Sqrt(d), math.MaxFloat32)), inside[i])
	}
	return vol.WithData(out)
}

func signed(d float32, inside bool) float32 {
	if inside {
		return d
	}
	return -d
}

// seedCrossings stores squared distances to the level for every voxel that
// has an axis neighbour on the other side. It reports whether any crossing
// was found.
func seedCrossings(vol *models.Volume, inside []bool, level float64, sq []float64) bool {
	seeded := false
	for axis := 0; axis < 3; axis++ {
		h := vol.Spacing[axis]
		stride := axisStride(vol.Size, axis)
		n := vol.Size[axis]

		forEachLine(vol.Size, axis, func(base int) {
			for q := 0; q+1 < n; q++ {
				p := base + q*stride
				r := p + stride
				if inside[p] == inside[r] {
					continue
				}
				vp, vr := float64(vol.Data[p]), float64(vol.Data[r])
				t := (level - vp) / (vr - vp)
				if math.IsNaN(t) || math.IsInf(t, 0) {
					t = 0.5
				}
				t = math.Max(0, math.Min(1, t))

				dp, dr := t*h, (1-t)*h
				sq[p] = math.Min(sq[p], dp*dp)
				sq[r] = math.Min(sq[r], dr*dr)
				seeded = true
			}
		})
	}
	return seeded
}

// transformAxis runs the 1D lower-envelope distance transform
// (Felzenszwalb & Huttenlocher) along every line of axis, in place.
func transformAxis(size [3]int, axis int, h float64, sq []float64) {
	n := size[axis]
	stride := axisStride(size, axis)

	f := make([]float64, n)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	forEachLine(size, axis, func(base int) {
		for q := 0; q < n; q++ {
			f[q] = sq[base+q*stride]
		}
		envelope1D(f, h, d, v, z)
		for q := 0; q < n; q++ {
			sq[base+q*stride] = d[q]
		}
	})
}

func envelope1D(f []float64, h float64, d []float64, v []int, z []float64) {
	n := len(f)
	k := -1
	for q := 0; q < n; q++ {
		if math.IsInf(f[q], 1) {
			continue
		}
		pq := float64(q) * h
		var s float64
		for k >= 0 {
			pv := float64(v[k]) * h
			s = ((f[q] + pq*pq) - (f[v[k]] + pv*pv)) / (2 * (pq - pv))
			if s > z[k] {
				break
			}
			k--
		}
		k++
		v[k] = q
		if k == 0 {
			z[0] = math.Inf(-1)
		} else {
			z[k] = s
		}
		z[k+1] = math.Inf(1)
	}

	if k < 0 {
		for q := range d {
			d[q] = math.Inf(1)
		}
		return
	}

	k = 0
	for q := 0; q < n; q++ {
		pq := float64(q) * h
		for z[k+1] < pq {
			k++
		}
		pv := float64(v[k]) * h
		d[q] = (pq-pv)*(pq-pv) + f[v[k]]
	}
}
