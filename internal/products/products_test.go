package products

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mohammed-shakir/supermarkt-search/internal/brand"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

func TestMatches(t *testing.T) {
	cases := []struct {
		title, keyword string
		want           bool
	}{
		{"Knorr Nasi Goreng", "knorr", true},
		{"Knorr Nasi Goreng", "NASI knorr", true},
		{"Knorr Nasi Goreng", "knorr bami", false},
		{"Knorr Nasi Goreng", "   ", false},
		{"Halfvolle Melk", "melk", true},
	}
	for _, tc := range cases {
		if got := Matches(tc.title, Tokens(tc.keyword)); got != tc.want {
			t.Fatalf("Matches(%q,%q)=%v want %v", tc.title, tc.keyword, got, tc.want)
		}
	}
}

func TestServes(t *testing.T) {
	if !Serves(nil, []string{"Jumbo"}) {
		t.Fatalf("source without brands serves everything")
	}
	if !Serves([]string{"Jumbo"}, nil) {
		t.Fatalf("unscoped query reaches every source")
	}
	if Serves([]string{"Jumbo"}, []string{"Aldi", "Plus"}) {
		t.Fatalf("disjoint brands must not be served")
	}
	if !Serves([]string{"Jumbo", "Aldi"}, []string{"Plus", "Aldi"}) {
		t.Fatalf("overlap must be served")
	}
}

func TestStaticSource_FiltersKeywordAndBrand(t *testing.T) {
	s := NewStatic("demo", nil, brand.Default(), []model.Product{
		{Title: "Knorr Nasi", Supermarket: "AH"},
		{Title: "Knorr Bami", Supermarket: "Jumbo"},
		{Title: "Melk", Supermarket: "Jumbo"},
	})
	got, err := s.Search(context.Background(), Query{Keyword: "knorr", Brands: []string{"Albert Heijn"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Knorr Nasi" {
		t.Fatalf("got=%+v", got)
	}
	got, _ = s.Search(context.Background(), Query{Keyword: "knorr"})
	if len(got) != 2 {
		t.Fatalf("unscoped got=%d want 2", len(got))
	}
}

func TestHTTPSource_EnvelopeAndBareArray(t *testing.T) {
	var lastQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.RawQuery
		if r.Header.Get("X-Api-Key") != "secret" {
			http.Error(w, "nope", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/bare" {
			_, _ = io.WriteString(w, `[{"title":"Knorr Nasi","price":"3.49","size":"262 g","image":null,"supermarket":"Jumbo","on_discount":false}]`)
			return
		}
		_, _ = io.WriteString(w, `{"products":[{"title":"Knorr Bami","price":"3.29","size":"262 g","image":"https://img/x.png","supermarket":"Aldi","on_discount":true,"original_price":"3.99"}]}`)
	}))
	defer srv.Close()

	h := http.Header{"X-Api-Key": {"secret"}}
	env := NewHTTP("env", srv.URL+"/env", nil, srv.Client(), h)
	got, err := env.Search(context.Background(), Query{Keyword: "knorr", Brands: []string{"Aldi", "Jumbo"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Image == nil || *got[0].Image != "https://img/x.png" || got[0].OriginalPrice != "3.99" {
		t.Fatalf("got=%+v", got)
	}
	if !strings.Contains(lastQuery, "keyword=knorr") || strings.Count(lastQuery, "supermarket=") != 2 {
		t.Fatalf("query=%q", lastQuery)
	}

	bare := NewHTTP("bare", srv.URL+"/bare", nil, srv.Client(), h)
	got, err = bare.Search(context.Background(), Query{Keyword: "knorr"})
	if err != nil || len(got) != 1 || got[0].Image != nil {
		t.Fatalf("got=%+v err=%v", got, err)
	}

	denied := NewHTTP("denied", srv.URL, nil, srv.Client(), nil)
	if _, err := denied.Search(context.Background(), Query{Keyword: "knorr"}); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func TestElasticSource_QueryAndDecode(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/products/_search") {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"took": 1,
			"timed_out": false,
			"hits": {
				"total": {"value": 2, "relation": "eq"},
				"hits": [
					{"_index": "products", "_id": "1", "_source": {"title": "Knorr Nasi", "price": "3.49", "size": "262 g", "image": null, "supermarket": "Jumbo", "on_discount": false}},
					{"_index": "products", "_id": "2", "_source": {"title": "Knorr Bami", "price": "3.29", "size": "262 g", "image": null, "supermarket": "Aldi", "on_discount": false}}
				]
			}
		}`)
	}))
	defer srv.Close()

	ec, err := NewElasticClient(srv.URL)
	if err != nil {
		t.Fatalf("NewElasticClient: %v", err)
	}
	s := NewElastic("es", ec, "products", []string{"Jumbo", "Aldi"}, WithBrandField("supermarket.keyword"), WithSize(10))

	got, err := s.Search(context.Background(), Query{Keyword: "knorr", Brands: []string{"Jumbo"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Knorr Nasi" || got[1].Supermarket != "Aldi" {
		t.Fatalf("got=%+v", got)
	}
	for _, want := range []string{`"match"`, `"operator":"and"`, `"supermarket.keyword"`, `"size":10`} {
		if !strings.Contains(body, want) {
			t.Fatalf("request body %s missing %s", body, want)
		}
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}
	write("items.json", `[{"title":"Knorr Nasi","price":"3.49","size":"262 g","image":null,"supermarket":"ah","on_discount":false}]`)
	path := write("sources.json", `[
		{"name":"local","type":"static","file":"items.json","brands":["ah"]},
		{"name":"api","type":"http","url":"http://localhost:1/products"},
		{"name":"index","type":"elastic","url":"http://localhost:9200","index":"products","brands":["jumbo"]}
	]`)

	srcs, err := LoadSources(path, brand.Default(), http.DefaultClient)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	var names []string
	for _, s := range srcs {
		names = append(names, s.Name())
	}
	if !reflect.DeepEqual(names, []string{"local", "api", "index"}) {
		t.Fatalf("names=%v", names)
	}
	if !reflect.DeepEqual(srcs[0].Brands(), []string{"Albert Heijn"}) || !reflect.DeepEqual(srcs[2].Brands(), []string{"Jumbo"}) {
		t.Fatalf("brands not canonicalized: %v %v", srcs[0].Brands(), srcs[2].Brands())
	}

	bad := []string{
		`[{"type":"static"}]`,
		`[{"name":"a","type":"http"}]`,
		`[{"name":"a","type":"ftp"}]`,
		`[{"name":"a","type":"static","file":"items.json"},{"name":"a","type":"static","file":"items.json"}]`,
		`[{"name":"a","type":"elastic","url":"http://x"}]`,
	}
	for _, b := range bad {
		if _, err := LoadSources(write("bad.json", b), nil, nil); err == nil {
			t.Fatalf("expected error for %s", b)
		}
	}
}

func TestShippedSourcesFile(t *testing.T) {
	srcs, err := LoadSources(filepath.Join("..", "..", "data", "sources.json"), brand.Default(), http.DefaultClient)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	got, err := srcs[0].Search(context.Background(), Query{Keyword: "knorr"})
	if err != nil || len(got) == 0 {
		t.Fatalf("got=%d err=%v", len(got), err)
	}
}
