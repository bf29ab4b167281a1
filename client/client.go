// Package client — Go-клиент HTTP API и наблюдатель статуса обработки
// встреч для встраивания в инструменты и ботов.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"meetvault/internal/domain"
)

// MeetingStatus — ответ эндпоинта статуса встречи
type MeetingStatus struct {
	MeetingID    uuid.UUID               `json:"meeting_id"`
	Status       domain.ProcessingStatus `json:"status"`
	Meeting      *domain.Meeting         `json:"meeting"`
	AudioRecords []domain.AudioRecord    `json:"audio_records"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// MeetingStatus запрашивает текущий статус обработки встречи
func (c *Client) MeetingStatus(ctx context.Context, meetingID uuid.UUID) (*MeetingStatus, error) {
	url := fmt.Sprintf("%s/v1/meetings/%s/status", c.baseURL, meetingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("status request returned %d: %s", resp.StatusCode, body)
	}

	var status MeetingStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &status, nil
}
