package scene

import (
	"fmt"
	"math"

	"github.com/rjboer/sarsolver/internal/geometry"
	"github.com/rjboer/sarsolver/internal/sar"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxGridPoints bounds the number of scatterers a grid may hold.
const MaxGridPoints = 1 << 22

// Grid is a regular lattice of scatterer positions centred on Centre. Points
// are ordered with z varying fastest, then y, then x.
type Grid struct {
	Centre  r3.Vec
	Spacing [3]float64
	Counts  [3]int
	Points  []r3.Vec
}

// NewGrid samples a box of the given xyz extents. An axis with zero extent
// holds a single plane through the centre; other axes hold
// floor(extent/spacing)+1 samples placed symmetrically about the centre.
func NewGrid(centre r3.Vec, extents, spacing [3]float64) (*Grid, error) {
	g := &Grid{Centre: centre, Spacing: spacing}
	axes := [3][]float64{}
	origin := [3]float64{centre.X, centre.Y, centre.Z}
	total := 1
	for i := range extents {
		if extents[i] < 0 || math.IsNaN(extents[i]) || math.IsInf(extents[i], 0) {
			return nil, fmt.Errorf("%w: extent %g on axis %d", ErrInvalidGrid, extents[i], i)
		}
		n := 1
		if extents[i] > 0 {
			if !(spacing[i] > 0) || math.IsInf(spacing[i], 0) {
				return nil, fmt.Errorf("%w: spacing %g on axis %d", ErrInvalidGrid, spacing[i], i)
			}
			n = int(math.Floor(extents[i]/spacing[i])) + 1
		}
		if n > MaxGridPoints || total*n > MaxGridPoints {
			return nil, fmt.Errorf("%w: more than %d points", ErrInvalidGrid, MaxGridPoints)
		}
		total *= n
		g.Counts[i] = n
		axes[i] = make([]float64, n)
		if n == 1 {
			axes[i][0] = origin[i]
			continue
		}
		half := float64(n-1) / 2 * spacing[i]
		floats.Span(axes[i], origin[i]-half, origin[i]+half)
	}

	g.Points = make([]r3.Vec, 0, total)
	for _, x := range axes[0] {
		for _, y := range axes[1] {
			for _, z := range axes[2] {
				g.Points = append(g.Points, r3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	return g, nil
}

// GridFromAperture picks an isotropic spacing of the finer of the aperture's
// range and cross-range resolutions seen from centre, divided by
// safetyFactor. A safety factor below 1 is treated as 1.
func GridFromAperture(a *Aperture, centre r3.Vec, extents [3]float64, safetyFactor float64) (*Grid, error) {
	if safetyFactor < 1 || math.IsNaN(safetyFactor) {
		safetyFactor = 1
	}
	res := math.Min(a.RangeResolution(), a.CrossRangeResolution(centre))
	step := res / safetyFactor
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: resolution %g m", ErrInvalidGrid, res)
	}
	return NewGrid(centre, extents, [3]float64{step, step, step})
}

// Len returns the number of grid points.
func (g *Grid) Len() int { return len(g.Points) }

// Index returns the position in Points of lattice sample (i, j, k).
func (g *Grid) Index(i, j, k int) int {
	return (i*g.Counts[1]+j)*g.Counts[2] + k
}

// Nearest returns the index of the lattice sample closest to p. Points
// outside the box snap to its faces.
func (g *Grid) Nearest(p r3.Vec) int {
	coord := [3]float64{p.X - g.Centre.X, p.Y - g.Centre.Y, p.Z - g.Centre.Z}
	var idx [3]int
	for a := range coord {
		n := g.Counts[a]
		if n == 1 {
			continue
		}
		v := math.Round(coord[a]/g.Spacing[a] + float64(n-1)/2)
		idx[a] = int(math.Max(0, math.Min(float64(n-1), v)))
	}
	return g.Index(idx[0], idx[1], idx[2])
}

// Fill writes the grid points into info.ScatPosns. The record must hold
// exactly Len scatterers.
func (g *Grid) Fill(info *sar.CalculationInfo) error {
	if info.NumScatterers != g.Len() || len(info.ScatPosns) != 3*g.Len() {
		return fmt.Errorf("%w: record holds %d scatterers, grid %d", sar.ErrShape, info.NumScatterers, g.Len())
	}
	copy(info.ScatPosns, geometry.Flatten(g.Points))
	return nil
}

// Record allocates a calculation record for aperture a imaging grid g, with
// a flat waveform spectrum and unit slow-time weighting.
func Record(a *Aperture, g *Grid, upsampleRatio float64, sign float64) (*sar.CalculationInfo, error) {
	info, err := sar.NewCalculationInfo(a.NumFastTimes, a.Len(), g.Len(),
		a.CentreFrequency, a.SampleFrequency, a.LightSpeed, upsampleRatio, sign)
	if err != nil {
		return nil, fmt.Errorf("allocate record: %w", err)
	}
	if err := a.Fill(info); err != nil {
		return nil, err
	}
	if err := g.Fill(info); err != nil {
		return nil, err
	}
	return info, nil
}
