package models

// Volume is a decoded 3D image with float32 voxels. It only lives while a
// pipeline stage works on it and is discarded once converted to a ScalarField.
type Volume struct {
	// Data is the voxel buffer, x-fastest (same layout as ScalarField)
	Data []float32

	// Size is the number of voxels along x, y and z
	Size [3]int

	// Spacing is the physical distance between voxel centres along each axis
	Spacing [3]float64

	// Origin is the physical position of voxel (0,0,0)
	Origin [3]float64
}

// NewVolume allocates a zero-filled volume with unit spacing.
func NewVolume(x, y, z int) *Volume {
	return &Volume{
		Data:    make([]float32, x*y*z),
		Size:    [3]int{x, y, z},
		Spacing: [3]float64{1, 1, 1},
	}
}

// NumVoxels returns x*y*z.
func (v *Volume) NumVoxels() int {
	return v.Size[0] * v.Size[1] * v.Size[2]
}

// Index returns the linear offset of voxel (i, j, k).
func (v *Volume) Index(i, j, k int) int {
	return i + v.Size[0]*(j+v.Size[1]*k)
}

// Extent returns the physical size of the volume along each axis.
func (v *Volume) Extent() [3]float64 {
	return [3]float64{
		float64(v.Size[0]) * v.Spacing[0],
		float64(v.Size[1]) * v.Spacing[1],
		float64(v.Size[2]) * v.Spacing[2],
	}
}

// Clone returns a deep copy sharing no buffers with v.
func (v *Volume) Clone() *Volume {
	out := *v
	out.Data = make([]float32, len(v.Data))
	copy(out.Data, v.Data)
	return &out
}

// WithData returns a volume with v's geometry and the given buffer.
func (v *Volume) WithData(data []float32) *Volume {
	out := *v
	out.Data = data
	return &out
}
