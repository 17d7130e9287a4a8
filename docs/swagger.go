// Package docs builds the OpenAPI descriptor of the poem API and registers it
// with swag so that the Swagger UI serves the same document.
package docs

import (
	"fmt"
	"net/http"
	"sync"

	"poem/internal/handler"
	"poem/internal/service"

	"github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/swaggo/swag"
)

const (
	OpenAPIVersion = "3.0.1"
	Title          = "Poem API"
	Version        = "1.0"
	Description    = "API documentation for Poem Management System"

	// InstanceName is the swag registry key the Swagger UI reads from.
	InstanceName = "poem"

	bearerAuth = "BearerAuth"
	poetryTag  = "Poetry"
)

// ErrorResponse is the body of most non-2xx answers.
type ErrorResponse struct {
	Error string `json:"error" example:"Failed to retrieve poem"`
}

// ValidationErrors maps each offending field to its message.
type ValidationErrors map[string]string

type document struct {
	json []byte
	yaml []byte
}

var (
	build = sync.OnceValues(func() (*document, error) {
		spec, err := Spec()
		if err != nil {
			return nil, err
		}
		j, err := spec.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		y, err := spec.MarshalYAML()
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return &document{json: j, yaml: y}, nil
	})

	registerOnce sync.Once
)

// JSON returns the descriptor rendered as JSON. The document is built once.
func JSON() ([]byte, error) {
	doc, err := build()
	if err != nil {
		return nil, err
	}
	return doc.json, nil
}

func YAML() ([]byte, error) {
	doc, err := build()
	if err != nil {
		return nil, err
	}
	return doc.yaml, nil
}

type swagDoc struct{}

func (swagDoc) ReadDoc() string {
	j, err := JSON()
	if err != nil {
		return "{}"
	}
	return string(j)
}

// Register makes the descriptor available to gin-swagger under InstanceName.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		swag.Register(InstanceName, swagDoc{})
	})
}

type operation struct {
	method   string
	path     string
	id       string
	summary  string
	req      any
	resp     any
	notFound bool
	validate bool
	admin    bool
}

var operations = []operation{
	{method: http.MethodGet, path: "/api/poetry/random", id: "getRandomPoetry", summary: "Get a random poem",
		resp: new(service.PoetryResponse), notFound: true},
	{method: http.MethodGet, path: "/api/poetry/{id}", id: "getPoemById", summary: "Get a poem by id",
		req: new(handler.PoemIDRequest), resp: new(service.PoetryResponse), notFound: true},
	{method: http.MethodGet, path: "/api/poetry/search/title", id: "searchByTitle", summary: "Search poems by title",
		req: new(handler.TitleSearchRequest), resp: new(service.PoetryPage), validate: true},
	{method: http.MethodGet, path: "/api/poetry/search/author", id: "searchByAuthor", summary: "Search poems by author",
		req: new(handler.AuthorSearchRequest), resp: new(service.PoetryPage), validate: true},
	{method: http.MethodGet, path: "/api/poetry/dynasty/{dynasty}", id: "searchByDynasty", summary: "List poems of a dynasty",
		req: new(handler.DynastyRequest), resp: new(service.PoetryPage), validate: true},
	{method: http.MethodGet, path: "/api/poetry/type/{type}", id: "searchByType", summary: "List poems of a type",
		req: new(handler.TypeRequest), resp: new(service.PoetryPage), validate: true},
	{method: http.MethodGet, path: "/api/poetry/tag/{tagName}", id: "searchByTag", summary: "List poems with a tag",
		req: new(handler.TagRequest), resp: new(service.PoetryPage), validate: true},
	{method: http.MethodGet, path: "/api/poetry/format/{format}", id: "searchByFormat", summary: "List poems of a format",
		req: new(handler.FormatRequest), resp: new(service.PoetryPage), validate: true},
	{method: http.MethodGet, path: "/api/poetry/fulltext", id: "fullTextSearch", summary: "Search title, author and content",
		req: new(handler.FullTextRequest), resp: new(service.PoetryPage), validate: true},
	{method: http.MethodPut, path: "/api/poetry/{id}", id: "savePoem", summary: "Create or replace a poem",
		req: new(handler.SavePoemRequest), resp: new(service.PoetryResponse), validate: true, admin: true},
	{method: http.MethodDelete, path: "/api/poetry/{id}", id: "deletePoem", summary: "Delete a poem",
		req: new(handler.PoemIDRequest), notFound: true, admin: true},
}

// Spec reflects a fresh OpenAPI document from the handler request types and
// the service response types.
func Spec() (*openapi3.Spec, error) {
	r := openapi3.Reflector{}
	r.Spec = &openapi3.Spec{Openapi: OpenAPIVersion}
	r.Spec.Info.
		WithTitle(Title).
		WithVersion(Version).
		WithDescription(Description)
	r.Spec.SetHTTPBearerTokenSecurity(bearerAuth, "JWT", `Type "Bearer" followed by a space and JWT token.`)

	for _, op := range operations {
		if err := addOperation(&r, op); err != nil {
			return nil, fmt.Errorf("%s %s: %w", op.method, op.path, err)
		}
	}
	return r.Spec, nil
}

func addOperation(r *openapi3.Reflector, op operation) error {
	oc, err := r.NewOperationContext(op.method, op.path)
	if err != nil {
		return err
	}
	oc.SetID(op.id)
	oc.SetTags(poetryTag)
	oc.SetSummary(op.summary)

	if op.req != nil {
		oc.AddReqStructure(op.req)
	}

	switch {
	case op.resp != nil:
		oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(http.StatusOK))
	case op.method == http.MethodDelete:
		oc.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	}

	if op.validate {
		oc.AddRespStructure(new(ValidationErrors), openapi.WithHTTPStatus(http.StatusBadRequest))
	}
	if op.notFound {
		if op.method == http.MethodDelete {
			oc.AddRespStructure(new(ErrorResponse), openapi.WithHTTPStatus(http.StatusNotFound))
		} else {
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNotFound))
		}
	}
	if op.admin {
		oc.AddSecurity(bearerAuth)
		oc.AddRespStructure(new(ErrorResponse), openapi.WithHTTPStatus(http.StatusUnauthorized))
		oc.AddRespStructure(new(ErrorResponse), openapi.WithHTTPStatus(http.StatusForbidden))
	}
	oc.AddRespStructure(new(ErrorResponse), openapi.WithHTTPStatus(http.StatusTooManyRequests))
	oc.AddRespStructure(new(ErrorResponse), openapi.WithHTTPStatus(http.StatusInternalServerError))

	return r.AddOperation(oc)
}
