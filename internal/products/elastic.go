package products

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olivere/elastic/v7"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

const defaultElasticSize = 100

// ElasticSource searches a product index: a match on title with all terms
// required, plus a terms filter on the brand field for scoped queries.
type ElasticSource struct {
	name       string
	client     *elastic.Client
	index      string
	brandField string
	brands     []string
	size       int
}

type ElasticOption func(*ElasticSource)

// WithBrandField sets the field used for brand filtering (default "supermarket").
func WithBrandField(f string) ElasticOption {
	return func(s *ElasticSource) {
		if f != "" {
			s.brandField = f
		}
	}
}

func WithSize(n int) ElasticOption {
	return func(s *ElasticSource) {
		if n > 0 {
			s.size = n
		}
	}
}

func NewElastic(name string, client *elastic.Client, index string, brands []string, opts ...ElasticOption) *ElasticSource {
	s := &ElasticSource{
		name:       name,
		client:     client,
		index:      index,
		brandField: "supermarket",
		brands:     brands,
		size:       defaultElasticSize,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewElasticClient builds a client without sniffing or health checks so it
// works behind load balancers and in tests.
func NewElasticClient(url string) (*elastic.Client, error) {
	c, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("elastic client %s: %w", url, err)
	}
	return c, nil
}

func (s *ElasticSource) Name() string     { return s.name }
func (s *ElasticSource) Brands() []string { return s.brands }

func (s *ElasticSource) Search(ctx context.Context, q Query) ([]model.Product, error) {
	query := elastic.NewBoolQuery().
		Must(elastic.NewMatchQuery("title", q.Keyword).Operator("and"))
	if len(q.Brands) > 0 {
		vals := make([]any, len(q.Brands))
		for i, b := range q.Brands {
			vals[i] = b
		}
		query = query.Filter(elastic.NewTermsQuery(s.brandField, vals...))
	}

	res, err := s.client.Search().
		Index(s.index).
		Query(query).
		Size(s.size).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: elastic search: %w", s.name, err)
	}

	out := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
