// Package engine adapts MuPDF (through go-fitz) to the document engine
// capability surface the session controller drives.
package engine

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// Document is the part of a decoded PDF the engine relies on.
// *fitz.Document satisfies it.
type Document interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	ImageDPI(pageNumber int, dpi float64) (*image.RGBA, error)
	Bound(pageNumber int) (image.Rectangle, error)
	Metadata() map[string]string
	Close() error
}

// Opener decodes an in-memory document.
type Opener func(data []byte) (Document, error)

// FitzOpener opens data with MuPDF.
func FitzOpener(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
