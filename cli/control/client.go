package control

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rssreceptor/domain"
)

type Client struct {
	addr string
	http *http.Client
}

func NewClient(addr string) *Client {
	return &Client{addr: addr, http: &http.Client{Timeout: 5 * time.Second}}
}

// Status fetches the ingestion state of the running instance.
func (c *Client) Status() (domain.StatusReport, error) {
	resp, err := c.http.Get("http://" + c.addr + "/status")
	if err != nil {
		return domain.StatusReport{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.StatusReport{}, fmt.Errorf("server error: %s", resp.Status)
	}
	var report domain.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return domain.StatusReport{}, fmt.Errorf("decode status: %w", err)
	}
	return report, nil
}
