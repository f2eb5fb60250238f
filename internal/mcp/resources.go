package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/fitjoin/internal/models"
)

func (h *handlers) champions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	lb, err := h.ds.Leaderboard(ctx, models.Filter{})
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, lb.Champions)
}

func (h *handlers) users(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	users, err := h.ds.Users(ctx, models.Filter{})
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, users)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
