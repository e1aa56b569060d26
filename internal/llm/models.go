package llm

import (
	"context"
	"fmt"
)

// CheckModel confirms the configured chat model is served by the API.
func (c *Client) CheckModel(ctx context.Context) error {
	model, err := c.client.GetModel(ctx, c.Model)
	if err != nil {
		return fmt.Errorf("model %s unavailable: %w", c.Model, err)
	}
	if model.ID == "" {
		return fmt.Errorf("model %s unavailable: empty model id", c.Model)
	}
	return nil
}
