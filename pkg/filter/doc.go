// Package filter implements the voxel filters used to turn label and
// intensity volumes into smooth fields: label isolation, discrete Gaussian
// smoothing, an approximate signed distance map and min/max reduction.
//
// All filters read a models.Volume and return a new one; inputs are never
// modified. Distances and smoothing widths are in physical units, so voxel
// spacing is honoured on every axis.
package filter
