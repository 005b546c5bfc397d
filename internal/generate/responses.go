package generate

import (
	"context"
	"fmt"
	"strings"
)

// APIError is a non-2xx answer from the generation backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api status %d", e.StatusCode)
}

// buildResponsesBody creates the JSON body for a tool-forced image generation call.
func buildResponsesBody(model string, req Request) map[string]any {
	return map[string]any{
		"model": model,
		"input": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "input_text", "text": req.Prompt},
				},
			},
		},
		"tools": []map[string]any{
			{
				"type":          "image_generation",
				"size":          req.Size,
				"quality":       req.Quality,
				"background":    req.Background,
				"output_format": req.OutputFormat,
			},
		},
		"tool_choice":       map[string]any{"type": "image_generation"},
		"temperature":       1,
		"top_p":             1,
		"max_output_tokens": 2048,
		"store":             false,
	}
}

// createResponse posts to {base}/responses and returns the decoded JSON body
// without assuming any schema.
func (g *Generator) createResponse(ctx context.Context, body map[string]any) (any, error) {
	var payload, errPayload any

	url := strings.TrimRight(g.opts.BaseURL, "/") + "/responses"
	resp, err := g.rest.R().
		SetContext(ctx).
		SetAuthToken(g.opts.APIKey).
		SetBody(body).
		ForceContentType("application/json").
		SetResult(&payload).
		SetError(&errPayload).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("responses request: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: errorMessage(errPayload)}
	}
	return payload, nil
}

// errorMessage pulls error or error.message out of a decoded error body
func errorMessage(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	if msg, ok := obj["error"].(string); ok {
		return msg
	}
	if errObj, ok := obj["error"].(map[string]any); ok {
		if msg, ok := errObj["message"].(string); ok {
			return msg
		}
	}
	return ""
}
