package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arukh89/bitcoin-block/internal/api"
	"github.com/arukh89/bitcoin-block/internal/game"
	"github.com/arukh89/bitcoin-block/internal/models"
)

// Client drives the game daemon's HTTP API on behalf of the dashboard.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) State() (*api.StateResponse, error) {
	var state api.StateResponse
	if err := c.do(http.MethodGet, "/api/state", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) CreateRound(roundNumber int, blockHeight int64, durationMinutes int) (*models.Round, error) {
	body := map[string]interface{}{
		"roundNumber":     roundNumber,
		"blockHeight":     blockHeight,
		"durationMinutes": durationMinutes,
	}
	var round models.Round
	if err := c.do(http.MethodPost, "/api/admin/rounds", body, &round); err != nil {
		return nil, err
	}
	return &round, nil
}

func (c *Client) CloseRound(id uint) error {
	return c.do(http.MethodPost, fmt.Sprintf("/api/admin/rounds/%d/close", id), map[string]interface{}{}, nil)
}

func (c *Client) ResolveRound(id uint) (*game.Result, error) {
	var result game.Result
	if err := c.do(http.MethodPost, fmt.Sprintf("/api/admin/rounds/%d/resolve", id), map[string]interface{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SavePrizeConfig(jackpot, first, second, currency string) error {
	body := map[string]interface{}{
		"jackpot":     jackpot,
		"firstPlace":  first,
		"secondPlace": second,
		"currency":    currency,
	}
	return c.do(http.MethodPut, "/api/admin/prize-config", body, nil)
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, &reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Admin-Token", c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
