package scan

import (
	"errors"
	"io"

	"github.com/astrogo/fitsio"
)

// WriteFits streams the payload to w as a FITS file.  The primary HDU is a
// float64 cube of the raw frames, one plane per shot; the running average
// follows in its own HDU.  Scan geometry and acquisition settings ride in
// the primary header.
func WriteFits(w io.Writer, p Payload) error {
	metadata := []fitsio.Card{
		{Name: "XCENTER", Value: p.Params.Center[0], Comment: "scan center, x"},
		{Name: "YCENTER", Value: p.Params.Center[1], Comment: "scan center, y"},
		{Name: "XRANGE", Value: p.Params.Range[0], Comment: "scan extent, x"},
		{Name: "YRANGE", Value: p.Params.Range[1], Comment: "scan extent, y"},
		{Name: "COLLECTS", Value: p.Params.CollectsPerPt, Comment: "collections per sample"},
		{Name: "SHOT", Value: p.Params.Shot, Comment: "pass in flight, 1-based"},
		{Name: "SHOTS", Value: p.Params.Shots, Comment: "total passes"},
		{Name: "ACQRATE", Value: p.Params.AcqRate, Comment: "counter sample rate, Hz"},
	}
	nframes := len(p.Datasets.Raw)
	if nframes == 0 {
		return errors.New("payload holds no frames")
	}
	width := p.Datasets.Raw[0].Cols
	height := p.Datasets.Raw[0].Rows
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{width, height}
	if nframes > 1 {
		dims = append(dims, nframes)
	}
	im := fitsio.NewImage(-64, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}
	buf := make([]float64, 0, width*height*nframes)
	for _, f := range p.Datasets.Raw {
		for j := 0; j < height; j++ {
			buf = append(buf, f.Row(j)...)
		}
	}
	err = im.Write(buf)
	if err != nil {
		return err
	}
	err = fits.Write(im)
	if err != nil {
		return err
	}
	if len(p.Datasets.Avg) == 0 {
		return nil
	}
	avg := p.Datasets.Avg[len(p.Datasets.Avg)-1]
	im2 := fitsio.NewImage(-64, []int{avg.Cols, avg.Rows})
	defer im2.Close()
	err = im2.Header().Append(fitsio.Card{Name: "EXTNAME", Value: "AVG", Comment: "running per-pixel mean"})
	if err != nil {
		return err
	}
	buf = buf[:0]
	for j := 0; j < avg.Rows; j++ {
		buf = append(buf, avg.Row(j)...)
	}
	err = im2.Write(buf)
	if err != nil {
		return err
	}
	return fits.Write(im2)
}
