package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var _ output.Annotator = (*Annotator)(nil)

const (
	LabelWidth  = 60
	LabelHeight = 20
)

// Annotator draws each element's bx_id on a red tag just above its top-left
// corner. Tags that would not fit inside the image are dropped.
type Annotator struct {
	Background color.NRGBA
	Quality    int
}

func New() *Annotator {
	return &Annotator{
		Background: color.NRGBA{R: 0xff, A: 0xcc},
		Quality:    90,
	}
}

func (a *Annotator) Annotate(shot *entity.Screenshot, elements []entity.PageElement) (*entity.Screenshot, error) {
	if shot == nil || len(shot.Data) == 0 {
		return nil, fmt.Errorf("empty screenshot")
	}

	src, err := imaging.Decode(bytes.NewReader(shot.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	dst := imaging.Clone(src)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()

	drawn := 0
	for _, el := range elements {
		pt, ok := placement(el, w, h)
		if !ok {
			continue
		}
		dst = imaging.Overlay(dst, a.label(el.BxID), pt, 1.0)
		drawn++
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(a.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  w,
		Height: h,
	}, nil
}

// placement returns the tag's top-left corner, clamped at zero.
func placement(el entity.PageElement, w, h int) (image.Point, bool) {
	top := max(0, int(math.Round(el.Y-LabelHeight)))
	left := max(0, int(math.Round(el.X)))
	if top > h-LabelHeight || left > w-LabelWidth {
		return image.Point{}, false
	}
	return image.Pt(left, top), true
}

func (a *Annotator) label(text string) *image.NRGBA {
	img := imaging.New(LabelWidth, LabelHeight, a.Background)

	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	baseline := (LabelHeight + metrics.Ascent.Ceil() - metrics.Descent.Ceil()) / 2

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(max(0, (LabelWidth-width)/2), baseline),
	}
	d.DrawString(text)
	return img
}
