package handler

import (
	"errors"
	"fmt"
	"net/http"
	"unicode"

	"poem/internal/model"
	"poem/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// The request types double as the OpenAPI parameter definitions: `query`
// and `binding` drive gin, `path` and the schema tags drive the docs.

const DefaultPageSize = 10

// PageQuery selects one page of a listing.
type PageQuery struct {
	Page int `query:"page" default:"0" minimum:"0" maximum:"1000000" description:"Zero-based page index" binding:"min=0,max=1000000"`
	Size int `query:"size" default:"10" minimum:"1" maximum:"100" description:"Page size" binding:"min=1,max=100"`
}

func defaultPage() PageQuery {
	return PageQuery{Page: 0, Size: DefaultPageSize}
}

type TitleSearchRequest struct {
	Title string `query:"title" required:"true" description:"Case-insensitive title fragment" binding:"required"`
	PageQuery
}

type AuthorSearchRequest struct {
	Author string `query:"author" required:"true" description:"Exact author name" binding:"required"`
	PageQuery
}

type FullTextRequest struct {
	Keyword string `query:"keyword" required:"true" description:"Fragment matched against title, author and content" binding:"required"`
	PageQuery
}

type DynastyRequest struct {
	Dynasty string `path:"dynasty"`
	PageQuery
}

type TypeRequest struct {
	Type string `path:"type"`
	PageQuery
}

type TagRequest struct {
	TagName string `path:"tagName"`
	PageQuery
}

type FormatRequest struct {
	Format string `path:"format"`
	PageQuery
}

type PoemIDRequest struct {
	ID string `path:"id"`
}

// SavePoemRequest is the full body of an admin upsert. Child lists are stored
// in the order given.
type SavePoemRequest struct {
	ID            string                   `json:"-" path:"id"`
	Title         string                   `json:"title" required:"true" binding:"required"`
	Dynasty       string                   `json:"dynasty" required:"true" binding:"required"`
	Author        string                   `json:"author" required:"true" binding:"required"`
	SourceLink    string                   `json:"sourceLink"`
	Type          string                   `json:"type" required:"true" binding:"required"`
	Format        string                   `json:"format" required:"true" binding:"required"`
	UpdateAt      string                   `json:"updateAt"`
	Contents      []string                 `json:"contents"`
	Translations  []service.TranslationDto `json:"translations"`
	Tags          []string                 `json:"tags"`
	Notes         []string                 `json:"notes"`
	Appreciations []string                 `json:"appreciations"`
}

func (r SavePoemRequest) toModel(id string) *model.Poem {
	poem := &model.Poem{
		ID:         id,
		Title:      r.Title,
		Dynasty:    r.Dynasty,
		Author:     r.Author,
		SourceLink: r.SourceLink,
		Type:       r.Type,
		Format:     r.Format,
		UpdateAt:   r.UpdateAt,
	}
	for _, c := range r.Contents {
		poem.Contents = append(poem.Contents, model.PoemContent{Content: c})
	}
	for _, t := range r.Translations {
		poem.Translations = append(poem.Translations, model.PoemTranslation{Translation: t.Text, Source: t.Source})
	}
	for _, name := range r.Tags {
		poem.Tags = append(poem.Tags, model.Tag{Name: name})
	}
	for _, n := range r.Notes {
		poem.Notes = append(poem.Notes, model.PoemNote{Note: n})
	}
	for _, a := range r.Appreciations {
		poem.Appreciations = append(poem.Appreciations, model.PoemAppreciation{Appreciation: a})
	}
	return poem
}

// bindQuery maps the URL query onto req by its `query` tags and validates it.
// Fields absent from the query keep the values req already holds.
func bindQuery(c *gin.Context, req any) bool {
	if err := binding.MapFormWithTag(req, c.Request.URL.Query(), "query"); err != nil {
		respondBindError(c, err)
		return false
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

// respondBindError answers 400 with one message per offending field, or a
// generic error when the input could not be parsed at all.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := lowerFirst(fe.Field())
		fields[name] = fieldMessage(name, fe)
	}
	c.JSON(http.StatusBadRequest, fields)
}

func fieldMessage(name string, fe validator.FieldError) string {
	switch {
	case fe.Tag() == "required":
		return name + " is required"
	case name == "page" && fe.Tag() == "min":
		return "page must not be less than 0"
	case name == "size" && fe.Tag() == "min":
		return "size must be at least 1"
	case name == "size" && fe.Tag() == "max":
		return "size must be at most 100"
	case fe.Tag() == "max":
		return fmt.Sprintf("%s must not be greater than %s", name, fe.Param())
	default:
		return name + " is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
