package ocr

import (
	"context"
	"log/slog"
	"strings"

	"github.com/agenthands/medscan/internal/logging"
)

// Chain tries engines in order and returns the first non-empty text.
type Chain struct {
	engines []Engine
	logger  *slog.Logger
}

func NewChain(logger *slog.Logger, engines ...Engine) *Chain {
	if logger == nil {
		logger = logging.Nop()
	}
	var live []Engine
	for _, e := range engines {
		if e != nil {
			live = append(live, e)
		}
	}
	return &Chain{engines: live, logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.engines))
	for i, e := range c.engines {
		names[i] = e.Name()
	}
	return strings.Join(names, "+")
}

// Len reports how many engines are configured.
func (c *Chain) Len() int { return len(c.engines) }

func (c *Chain) Recognize(ctx context.Context, in Input) (Result, error) {
	for _, e := range c.engines {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := e.Recognize(ctx, in)
		if err != nil {
			c.logger.Warn("ocr engine failed", "engine", e.Name(), "error", err)
			continue
		}
		if strings.TrimSpace(res.PlainText) == "" {
			c.logger.Debug("ocr engine returned no text", "engine", e.Name())
			continue
		}
		if res.Engine == "" {
			res.Engine = e.Name()
		}
		return res, nil
	}
	return Result{}, ErrNoText
}
