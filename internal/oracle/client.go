// Package oracle talks to an esplora-style block indexing service
// (mempool.space API shape). The service is treated as untrusted and
// eventually available: a missing block is a normal condition, not an error.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const recentBlocksTTL = 10 * time.Second

// BlockSummary mirrors the fields the esplora API returns for recent blocks.
// Informational display only, never used for resolution.
type BlockSummary struct {
	ID        string `json:"id"`
	Height    int64  `json:"height"`
	Timestamp int64  `json:"timestamp"`
	TxCount   int    `json:"tx_count"`
}

type Client struct {
	baseURL string
	httpc   *http.Client

	mu          sync.RWMutex
	recentCache []BlockSummary
	recentFetch time.Time
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// HashAtHeight resolves the hash of the block at the given height.
// found=false means the block is not mined (or not indexed) yet; any non-200
// response is treated that way since availability has no fixed SLA.
func (c *Client) HashAtHeight(ctx context.Context, height int64) (string, bool, error) {
	url := fmt.Sprintf("%s/block-height/%d", c.baseURL, height)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", false, err
	}
	hash := strings.TrimSpace(string(body))
	if hash == "" {
		return "", false, nil
	}
	return hash, true, nil
}

// TxCount returns the number of transactions in the block with the given
// hash, counted from the indexer's txid list.
func (c *Client) TxCount(ctx context.Context, hash string) (int, error) {
	url := fmt.Sprintf("%s/block/%s/txids", c.baseURL, hash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle: txids lookup for %s returned %d", hash, resp.StatusCode)
	}
	var txids []string
	if err := json.NewDecoder(resp.Body).Decode(&txids); err != nil {
		return 0, fmt.Errorf("oracle: decode txids: %w", err)
	}
	return len(txids), nil
}

// RecentBlocks returns the most recent blocks, newest first. Responses are
// cached for a short TTL because every connected viewer asks for the same
// data.
func (c *Client) RecentBlocks(ctx context.Context) ([]BlockSummary, error) {
	c.mu.RLock()
	if time.Since(c.recentFetch) < recentBlocksTTL && c.recentCache != nil {
		cached := c.recentCache
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	url := c.baseURL + "/blocks"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle: recent blocks returned %d", resp.StatusCode)
	}
	var blocks []BlockSummary
	if err := json.NewDecoder(resp.Body).Decode(&blocks); err != nil {
		return nil, fmt.Errorf("oracle: decode recent blocks: %w", err)
	}

	c.mu.Lock()
	c.recentCache = blocks
	c.recentFetch = time.Now()
	c.mu.Unlock()
	return blocks, nil
}
