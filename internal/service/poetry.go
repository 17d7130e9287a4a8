package service

import (
	"poem/internal/model"
)

// PoetryResponse is the public view of a poem with every child table inlined.
type PoetryResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Dynasty    string `json:"dynasty"`
	Author     string `json:"author"`
	SourceLink string `json:"sourceLink"`
	Type       string `json:"type"`
	Format     string `json:"format"`
	UpdateAt   string `json:"updateAt"`

	Contents      []string         `json:"contents"`
	Translations  []TranslationDto `json:"translations"`
	Tags          []string         `json:"tags"`
	Notes         []string         `json:"notes"`
	Appreciations []string         `json:"appreciations"`
}

type TranslationDto struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// PoetryPage is one page of poems plus the paging totals of the whole result.
type PoetryPage struct {
	Content          []PoetryResponse `json:"content"`
	Number           int              `json:"number"`
	Size             int              `json:"size"`
	TotalElements    int64            `json:"totalElements"`
	TotalPages       int              `json:"totalPages"`
	NumberOfElements int              `json:"numberOfElements"`
	First            bool             `json:"first"`
	Last             bool             `json:"last"`
	Empty            bool             `json:"empty"`
}

func toResponse(p *model.Poem) PoetryResponse {
	resp := PoetryResponse{
		ID:            p.ID,
		Title:         p.Title,
		Dynasty:       p.Dynasty,
		Author:        p.Author,
		SourceLink:    p.SourceLink,
		Type:          p.Type,
		Format:        p.Format,
		UpdateAt:      p.UpdateAt,
		Contents:      make([]string, len(p.Contents)),
		Translations:  make([]TranslationDto, len(p.Translations)),
		Tags:          make([]string, len(p.Tags)),
		Notes:         make([]string, len(p.Notes)),
		Appreciations: make([]string, len(p.Appreciations)),
	}
	for i, c := range p.Contents {
		resp.Contents[i] = c.Content
	}
	for i, t := range p.Translations {
		resp.Translations[i] = TranslationDto{Text: t.Translation, Source: t.Source}
	}
	for i, t := range p.Tags {
		resp.Tags[i] = t.Name
	}
	for i, n := range p.Notes {
		resp.Notes[i] = n.Note
	}
	for i, a := range p.Appreciations {
		resp.Appreciations[i] = a.Appreciation
	}
	return resp
}

func newPage(poems []model.Poem, total int64, page, size int) PoetryPage {
	content := make([]PoetryResponse, len(poems))
	for i := range poems {
		content[i] = toResponse(&poems[i])
	}

	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}

	return PoetryPage{
		Content:          content,
		Number:           page,
		Size:             size,
		TotalElements:    total,
		TotalPages:       totalPages,
		NumberOfElements: len(content),
		First:            page == 0,
		Last:             page+1 >= totalPages,
		Empty:            len(content) == 0,
	}
}
