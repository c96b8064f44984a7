// Package client talks to a running risk API server.
package client

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"health-risk/internal/api"
	"health-risk/internal/assess"
	"health-risk/internal/features"
	"health-risk/internal/ml"
	"health-risk/internal/schema"
	"health-risk/internal/storage"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Assess scores answers on the server. A non-empty userID stores the
// assessment in the user's history; the record id is returned when it was
// stored.
func (c *Client) Assess(input features.RawInput, userID string) (assess.Results, string, error) {
	req := c.rest.R().SetBody(input)
	if userID != "" {
		req.SetHeader(api.UserIDHeader, userID)
	}

	out := &api.AssessResponse{}
	resp, err := req.SetResult(out).SetError(out).Post(c.base + "/assess_risk")
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	if err := check(resp, out.Success, out.Error); err != nil {
		return nil, "", err
	}
	return out.Results, out.RecordID, nil
}

// RequiredFields returns each condition's ordered feature list.
func (c *Client) RequiredFields() (map[schema.Condition][]string, error) {
	out := &api.FieldsResponse{}
	resp, err := c.rest.R().SetResult(out).Get(c.base + "/get_required_fields")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := check(resp, out.Success, ""); err != nil {
		return nil, err
	}
	return out.RequiredFields, nil
}

// AllFields returns the sorted union of answer names the server accepts.
func (c *Client) AllFields() ([]string, error) {
	out := &api.AllFieldsResponse{}
	resp, err := c.rest.R().SetResult(out).Get(c.base + "/get_all_fields")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := check(resp, out.Success, ""); err != nil {
		return nil, err
	}
	return out.Fields, nil
}

// Models returns the server's per-condition scorer status.
func (c *Client) Models() ([]ml.ScorerStatus, error) {
	out := &api.ModelsResponse{}
	resp, err := c.rest.R().SetResult(out).Get(c.base + "/models")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := check(resp, out.Success, ""); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Records returns up to limit of a user's stored assessments, newest first.
func (c *Client) Records(userID string, limit int) ([]storage.Record, error) {
	params := map[string]string{"user_id": userID}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	out := &api.RecordsResponse{}
	errBody := &api.AssessResponse{}
	resp, err := c.rest.R().
		SetQueryParams(params).
		SetResult(out).
		SetError(errBody).
		Get(c.base + "/records")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp, errBody.Error)
	}
	return out.Records, nil
}

func check(resp *resty.Response, success bool, msg string) error {
	if resp.StatusCode() != http.StatusOK || !success {
		return apiError(resp, msg)
	}
	return nil
}

func apiError(resp *resty.Response, msg string) error {
	if msg != "" {
		return fmt.Errorf("API error: status %d: %s", resp.StatusCode(), msg)
	}
	return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode(), resp.String())
}
