package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/model"
)

// DefaultSearchEndpoint is used when no search endpoint is configured.
const DefaultSearchEndpoint = "/api/student-name-search/"

type StudentRepository interface {
	Search(ctx context.Context, endpoint, query string) ([]model.SearchResult, error)
}

type studentRepository struct {
	api *APIClient
}

func NewStudentRepository(api *APIClient) StudentRepository {
	return &studentRepository{api: api}
}

// SearchURL expands an endpoint template for query. A "{query}" placeholder is
// replaced in place; otherwise a query parameter is appended.
func SearchURL(endpoint, query string) string {
	if endpoint == "" {
		endpoint = DefaultSearchEndpoint
	}
	escaped := url.QueryEscape(query)
	if strings.Contains(endpoint, "{query}") {
		return strings.ReplaceAll(endpoint, "{query}", escaped)
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "query=" + escaped
}

func (r *studentRepository) Search(ctx context.Context, endpoint, query string) ([]model.SearchResult, error) {
	var resp dto.StudentSearchResponse
	if err := r.api.GetJSON(ctx, SearchURL(endpoint, query), nil, &resp); err != nil {
		return nil, fmt.Errorf("student search %q: %w", query, err)
	}

	results := make([]model.SearchResult, 0, len(resp.Students))
	if err := copier.Copy(&results, &resp.Students); err != nil {
		return nil, fmt.Errorf("error preparing search results: %w", err)
	}
	return results, nil
}
