package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rickgao/kitchen-ops/internal/model"
)

// GetForecast returns the backend's ingredient usage forecast.
// The shape is owned by the backend and passed through undecoded.
func (c *Client) GetForecast(ctx context.Context) (json.RawMessage, error) {
	var forecast json.RawMessage
	if err := c.get(ctx, "/ai/forecast-usage", &forecast); err != nil {
		return nil, fmt.Errorf("get forecast: %w", err)
	}
	return forecast, nil
}

// AnalyzeWaste uploads a photo as multipart field "image" and returns the analysis.
func (c *Client) AnalyzeWaste(ctx context.Context, filename string, image io.Reader) (*model.AIAnalysisResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var result model.AIAnalysisResult
	r := request{
		method:      http.MethodPost,
		path:        "/ai/analyze-waste",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	if err := c.do(ctx, r, &result); err != nil {
		return nil, fmt.Errorf("analyze waste: %w", err)
	}
	return &result, nil
}
