package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/diewo77/go-contracts/internal/mapper"
)

// CreateContract posts a mapped wizard payload. It satisfies wizard.Submitter.
func (c *Client) CreateContract(ctx context.Context, p mapper.Payload) (mapper.Receipt, error) {
	var r mapper.Receipt
	if err := c.Post(ctx, "/contracts", p, &r); err != nil {
		return mapper.Receipt{}, err
	}
	return r, nil
}

// ContractSummary is one row of the contract list.
type ContractSummary struct {
	ID         string  `json:"id"`
	RecordType string  `json:"record_type"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Currency   string  `json:"currency"`
	TotalValue float64 `json:"total_value"`
}

// ListContracts returns one page of contracts.
func (c *Client) ListContracts(ctx context.Context, page, limit int) ([]ContractSummary, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/contracts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []ContractSummary
	if err := c.Get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return out, nil
}

// Login exchanges credentials for a bearer token and keeps it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	in := map[string]string{"email": email, "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.Post(ctx, "/login", in, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	c.SetToken(out.Token)
	return out.Token, nil
}
