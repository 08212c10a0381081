package main

import (
	"encoding/csv"
	"fmt"
	"math/cmplx"
	"os"
	"strconv"

	"github.com/rjboer/sarsolver/internal/dsp"
	"gonum.org/v1/gonum/spatial/r3"
)

var imageHeader = []string{"x", "y", "z", "re", "im", "abs", "db"}

// writeImage stores one CSV row per grid sample with the magnitude in dB
// relative to ref.
func writeImage(path string, points []r3.Vec, image []complex128, ref float64) error {
	if len(points) != len(image) {
		return fmt.Errorf("image has %d samples for %d grid points", len(image), len(points))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(imageHeader); err != nil {
		return err
	}
	db := dsp.MagnitudeDB(image, ref)
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for i, p := range points {
		v := image[i]
		row := []string{format(p.X), format(p.Y), format(p.Z), format(real(v)), format(imag(v)), format(cmplx.Abs(v)), format(db[i])}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
