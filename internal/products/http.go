package products

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

const maxResponseBytes = 8 << 20

// HTTPSource queries a JSON product API:
// GET {URL}?keyword=...&supermarket=...
type HTTPSource struct {
	name   string
	url    string
	brands []string
	client *http.Client
	header http.Header
}

func NewHTTP(name, rawURL string, brands []string, client *http.Client, header http.Header) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{name: name, url: rawURL, brands: brands, client: client, header: header}
}

func (s *HTTPSource) Name() string     { return s.name }
func (s *HTTPSource) Brands() []string { return s.brands }

func (s *HTTPSource) Search(ctx context.Context, q Query) ([]model.Product, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	params := u.Query()
	params.Set("keyword", q.Keyword)
	for _, b := range q.Brands {
		params.Add("supermarket", b)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%s: unexpected status %d: %s", s.name, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", s.name, err)
	}
	return decodeProducts(body)
}

// decodeProducts accepts {"products": [...]} or a bare array.
func decodeProducts(body []byte) ([]model.Product, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var items []model.Product
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
		return items, nil
	}
	var env struct {
		Products []model.Product `json:"products"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return env.Products, nil
}
