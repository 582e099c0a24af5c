// Package ocr defines the text recognition contract shared by the
// prescription reader and the scan validator.
package ocr

import (
	"context"
	"errors"
)

var ErrNoText = errors.New("ocr produced no text")

// Input is a single encoded image submitted for recognition.
type Input struct {
	// Image is the encoded image payload (PNG, JPEG, TIFF ...).
	Image []byte
	// Languages are trained-data hints such as "eng".
	Languages []string
}

// Result is the recognized text and the engine that produced it.
type Result struct {
	PlainText string
	Engine    string
}

// Engine is one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}
