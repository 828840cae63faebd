package engine

import (
	"fmt"
	"image"
	"math"

	"pdf-view-session/internal/domain"

	"github.com/patrickmn/go-cache"
	"golang.org/x/image/draw"
)

// baseDPI is the resolution at zoom 1.
const baseDPI = 72.0

// effectiveZoomLocked resolves the fit modes against the page bound and the
// viewport. It falls back to the stored factor when the bound is unknown.
func (e *Engine) effectiveZoomLocked(index int) float64 {
	if e.zoomMode == domain.ZoomCustom || e.doc == nil || index < 0 || index >= e.pageCount {
		return e.zoom
	}
	bound, err := e.doc.Bound(index)
	if err != nil || bound.Empty() {
		return e.zoom
	}
	w, h := float64(bound.Dx()), float64(bound.Dy())
	if e.rotation == 90 || e.rotation == 270 {
		w, h = h, w
	}
	fitW := float64(e.viewportW) / w
	fitH := float64(e.viewportH) / h
	switch e.zoomMode {
	case domain.ZoomFitWidth:
		return clampFloat(fitW, minZoom, maxZoom)
	case domain.ZoomFitHeight:
		return clampFloat(fitH, minZoom, maxZoom)
	case domain.ZoomFitBest:
		return clampFloat(math.Min(fitW, fitH), minZoom, maxZoom)
	}
	return e.zoom
}

func renderKey(index int, dpi float64, rot domain.Rotation, flags domain.RenderFlags) string {
	return fmt.Sprintf("%d:%.1f:%d:%d", index, dpi, rot, flags)
}

// renderLocked rasterizes page index, going through the render cache.
func (e *Engine) renderLocked(index int) (image.Image, error) {
	dpi := baseDPI * e.effectiveZoomLocked(index)
	key := renderKey(index, dpi, e.rotation, e.flags)
	if cached, ok := e.renders.Get(key); ok {
		return cached.(image.Image), nil
	}

	raw, err := e.doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, err
	}
	if raw == nil || raw.Bounds().Empty() {
		return nil, errEmptyPage
	}
	img := finishRaster(raw, e.rotation, e.flags)
	e.renders.Set(key, img, cache.DefaultExpiration)
	return img, nil
}

// finishRaster applies background, rotation and color flags to a raw raster.
func finishRaster(src *image.RGBA, rot domain.Rotation, flags domain.RenderFlags) image.Image {
	var img image.Image = src
	if !flags.Has(domain.RenderTransparent) {
		bg := image.NewRGBA(src.Bounds())
		draw.Draw(bg, bg.Bounds(), image.White, image.Point{}, draw.Src)
		draw.Draw(bg, bg.Bounds(), src, src.Bounds().Min, draw.Over)
		img = bg
	}
	img = rotateRaster(img, rot)
	if flags.Has(domain.RenderGrayscale) {
		gray := image.NewGray(img.Bounds())
		draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
		img = gray
	}
	return img
}

func rotateRaster(src image.Image, rot domain.Rotation) image.Image {
	if rot == 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	var dst *image.RGBA
	if rot == 180 {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			switch rot {
			case 90:
				dst.Set(h-1-y, x, c)
			case 180:
				dst.Set(w-1-x, h-1-y, c)
			case 270:
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}

// Thumbnail scales img down to at most maxWidth pixels wide.
func Thumbnail(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	height := int(math.Round(float64(b.Dy()) * float64(maxWidth) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
