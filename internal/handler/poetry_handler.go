package handler

import (
	"context"
	"errors"
	"net/http"

	"poem/internal/model"
	"poem/internal/repository"
	"poem/internal/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

type PoetryService interface {
	GetRandomPoetry(ctx context.Context) (*service.PoetryResponse, error)
	GetPoemByID(ctx context.Context, id string) (*service.PoetryResponse, error)
	SearchByTitle(ctx context.Context, title string, page, size int) (service.PoetryPage, error)
	SearchByAuthor(ctx context.Context, author string, page, size int) (service.PoetryPage, error)
	SearchByDynasty(ctx context.Context, dynasty string, page, size int) (service.PoetryPage, error)
	SearchByType(ctx context.Context, poemType string, page, size int) (service.PoetryPage, error)
	SearchByTag(ctx context.Context, tagName string, page, size int) (service.PoetryPage, error)
	SearchByFormat(ctx context.Context, format string, page, size int) (service.PoetryPage, error)
	FullTextSearch(ctx context.Context, keyword string, page, size int) (service.PoetryPage, error)
	SavePoem(ctx context.Context, poem *model.Poem) (*service.PoetryResponse, error)
	DeletePoem(ctx context.Context, id string) error
}

var _ PoetryService = (*service.PoetryService)(nil)

type PoetryHandler struct {
	svc    PoetryService
	logger *log.Logger
}

func NewPoetryHandler(svc PoetryService, logger *log.Logger) *PoetryHandler {
	return &PoetryHandler{svc: svc, logger: logger}
}

// Register mounts the public read routes and, behind auth, the admin routes.
func (h *PoetryHandler) Register(public, admin gin.IRoutes) {
	public.GET("/random", h.GetRandom)
	public.GET("/search/title", h.SearchByTitle)
	public.GET("/search/author", h.SearchByAuthor)
	public.GET("/dynasty/:dynasty", h.SearchByDynasty)
	public.GET("/type/:type", h.SearchByType)
	public.GET("/tag/:tagName", h.SearchByTag)
	public.GET("/format/:format", h.SearchByFormat)
	public.GET("/fulltext", h.FullTextSearch)
	public.GET("/:id", h.GetByID)

	admin.PUT("/:id", h.Save)
	admin.DELETE("/:id", h.Delete)
}

// GetRandom answers 404 with an empty body when the catalogue is empty.
func (h *PoetryHandler) GetRandom(c *gin.Context) {
	poem, err := h.svc.GetRandomPoetry(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to retrieve poem", err)
		return
	}
	if poem == nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, poem)
}

func (h *PoetryHandler) GetByID(c *gin.Context) {
	poem, err := h.svc.GetPoemByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internalError(c, "Failed to retrieve poem", err)
		return
	}
	if poem == nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, poem)
}

func (h *PoetryHandler) SearchByTitle(c *gin.Context) {
	req := TitleSearchRequest{PageQuery: defaultPage()}
	if !bindQuery(c, &req) {
		return
	}
	h.respondPage(c)(h.svc.SearchByTitle(c.Request.Context(), req.Title, req.Page, req.Size))
}

func (h *PoetryHandler) SearchByAuthor(c *gin.Context) {
	req := AuthorSearchRequest{PageQuery: defaultPage()}
	if !bindQuery(c, &req) {
		return
	}
	h.respondPage(c)(h.svc.SearchByAuthor(c.Request.Context(), req.Author, req.Page, req.Size))
}

func (h *PoetryHandler) SearchByDynasty(c *gin.Context) {
	req := DynastyRequest{PageQuery: defaultPage()}
	if !bindQuery(c, &req) {
		return
	}
	req.Dynasty = c.Param("dynasty")
	h.respondPage(c)(h.svc.SearchByDynasty(c.Request.Context(), req.Dynasty, req.Page, req.Size))
}

func (h *PoetryHandler) SearchByType(c *gin.Context) {
	req := TypeRequest{PageQuery: defaultPage()}
	if !bindQuery(c, &req) {
		return
	}
	req.Type = c.Param("type")
	h.respondPage(c)(h.svc.SearchByType(c.Request.Context(), req.Type, req.Page, req.Size))
}

func (h *PoetryHandler) SearchByTag(c *gin.Context) {
	req := TagRequest{PageQuery: defaultPage()}
	if !bindQuery(c, &req) {
		return
	}
	req.TagName = c.Param("tagName")
	h.respondPage(c)(h.svc.SearchByTag(c.Request.Context(), req.TagName, req.Page, req.Size))
}

func (h *PoetryHandler) SearchByFormat(c *gin.Context) {
	req := FormatRequest{PageQuery: defaultPage()}
	if !bindQuery(c, &req) {
		return
	}
	req.Format = c.Param("format")
	h.respondPage(c)(h.svc.SearchByFormat(c.Request.Context(), req.Format, req.Page, req.Size))
}

func (h *PoetryHandler) FullTextSearch(c *gin.Context) {
	req := FullTextRequest{PageQuery: defaultPage()}
	if !bindQuery(c, &req) {
		return
	}
	h.respondPage(c)(h.svc.FullTextSearch(c.Request.Context(), req.Keyword, req.Page, req.Size))
}

func (h *PoetryHandler) respondPage(c *gin.Context) func(service.PoetryPage, error) {
	return func(page service.PoetryPage, err error) {
		if err != nil {
			h.internalError(c, "Failed to search poems", err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// Save creates or fully replaces the poem at the given id.
func (h *PoetryHandler) Save(c *gin.Context) {
	var req SavePoemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	poem, err := h.svc.SavePoem(c.Request.Context(), req.toModel(c.Param("id")))
	if err != nil {
		h.internalError(c, "Failed to save poem", err)
		return
	}
	c.JSON(http.StatusOK, poem)
}

func (h *PoetryHandler) Delete(c *gin.Context) {
	err := h.svc.DeletePoem(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrPoemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poem not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to delete poem", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PoetryHandler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
