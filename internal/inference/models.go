package inference

import (
	"context"

	"github.com/agenthands/medscan/internal/core/model"
)

// ImageModel binds a client to one image-classification model.
type ImageModel struct {
	client *Client
	id     string
}

func (c *Client) ImageModel(id string) *ImageModel {
	return &ImageModel{client: c, id: id}
}

func (m *ImageModel) Name() string { return m.id }

func (m *ImageModel) Classify(ctx context.Context, image []byte) ([]model.Prediction, error) {
	return m.client.ClassifyImage(ctx, m.id, image)
}

// TextModel binds a client to one text-classification model.
type TextModel struct {
	client *Client
	id     string
}

func (c *Client) TextModel(id string) *TextModel {
	return &TextModel{client: c, id: id}
}

func (m *TextModel) Name() string { return m.id }

func (m *TextModel) Classify(ctx context.Context, text string) ([]model.Prediction, error) {
	return m.client.ClassifyText(ctx, m.id, text)
}

// ZeroShotModel binds a client to one zero-shot classification model.
type ZeroShotModel struct {
	client *Client
	id     string
}

func (c *Client) ZeroShotModel(id string) *ZeroShotModel {
	return &ZeroShotModel{client: c, id: id}
}

func (m *ZeroShotModel) Name() string { return m.id }

func (m *ZeroShotModel) Classify(ctx context.Context, text string, labels []string) ([]model.Prediction, error) {
	return m.client.ZeroShot(ctx, m.id, text, labels)
}

// CaptionModel binds a client to one image-to-text model.
type CaptionModel struct {
	client *Client
	id     string
}

func (c *Client) CaptionModel(id string) *CaptionModel {
	return &CaptionModel{client: c, id: id}
}

func (m *CaptionModel) Name() string { return m.id }

func (m *CaptionModel) Generate(ctx context.Context, image []byte) (string, error) {
	return m.client.ImageToText(ctx, m.id, image)
}
