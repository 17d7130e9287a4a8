package service

import (
	"context"
	"fmt"
	"math/rand/v2"

	"poem/internal/cache"
	"poem/internal/model"
	"poem/internal/repository"

	"github.com/charmbracelet/log"
)

type PoetryService struct {
	repo   repository.PoetryRepositoryInterface
	pages  *cache.Loader[PoetryPage]
	logger *log.Logger

	// randN picks the offset of the random poem; swapped in tests.
	randN func(n int64) int64
}

// NewPoetryService wires the service. pages may be nil, in which case the
// dynasty and type listings hit the database every time.
func NewPoetryService(repo repository.PoetryRepositoryInterface, pages *cache.Loader[PoetryPage], logger *log.Logger) *PoetryService {
	return &PoetryService{
		repo:   repo,
		pages:  pages,
		logger: logger,
		randN:  rand.Int64N,
	}
}

// GetRandomPoetry returns a uniformly chosen poem, or nil when there are none.
func (s *PoetryService) GetRandomPoetry(ctx context.Context) (*PoetryResponse, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count poems: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	poem, err := s.repo.FindAt(ctx, int(s.randN(total)))
	if err != nil {
		return nil, fmt.Errorf("load random poem: %w", err)
	}
	if poem == nil {
		// deleted between count and load
		return nil, nil
	}
	resp := toResponse(poem)
	return &resp, nil
}

func (s *PoetryService) GetPoemByID(ctx context.Context, id string) (*PoetryResponse, error) {
	poem, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load poem %q: %w", id, err)
	}
	if poem == nil {
		return nil, nil
	}
	resp := toResponse(poem)
	return &resp, nil
}

type pagedQuery func(ctx context.Context, value string, offset, limit int) ([]model.Poem, int64, error)

func (s *PoetryService) page(ctx context.Context, query pagedQuery, value string, page, size int) (PoetryPage, error) {
	poems, total, err := query(ctx, value, page*size, size)
	if err != nil {
		return PoetryPage{}, err
	}
	return newPage(poems, total, page, size), nil
}

// cachedPage serves a listing through the page cache when one is configured.
func (s *PoetryService) cachedPage(ctx context.Context, prefix string, query pagedQuery, value string, page, size int) (PoetryPage, error) {
	if s.pages == nil {
		return s.page(ctx, query, value, page, size)
	}
	key := fmt.Sprintf("%s:%s:%d:%d", prefix, value, page, size)
	return s.pages.GetOrLoad(ctx, key, func(ctx context.Context) (PoetryPage, error) {
		return s.page(ctx, query, value, page, size)
	})
}

func (s *PoetryService) SearchByTitle(ctx context.Context, title string, page, size int) (PoetryPage, error) {
	return s.page(ctx, s.repo.SearchByTitle, title, page, size)
}

func (s *PoetryService) SearchByAuthor(ctx context.Context, author string, page, size int) (PoetryPage, error) {
	return s.page(ctx, s.repo.FindByAuthor, author, page, size)
}

func (s *PoetryService) SearchByDynasty(ctx context.Context, dynasty string, page, size int) (PoetryPage, error) {
	return s.cachedPage(ctx, "dynasty", s.repo.FindByDynasty, dynasty, page, size)
}

func (s *PoetryService) SearchByType(ctx context.Context, poemType string, page, size int) (PoetryPage, error) {
	return s.cachedPage(ctx, "type", s.repo.FindByType, poemType, page, size)
}

func (s *PoetryService) SearchByTag(ctx context.Context, tagName string, page, size int) (PoetryPage, error) {
	return s.page(ctx, s.repo.FindByTag, tagName, page, size)
}

func (s *PoetryService) SearchByFormat(ctx context.Context, format string, page, size int) (PoetryPage, error) {
	return s.page(ctx, s.repo.FindByFormat, format, page, size)
}

func (s *PoetryService) FullTextSearch(ctx context.Context, keyword string, page, size int) (PoetryPage, error) {
	return s.page(ctx, s.repo.FullTextSearch, keyword, page, size)
}

// SavePoem stores the poem with its children and returns it as read back.
func (s *PoetryService) SavePoem(ctx context.Context, poem *model.Poem) (*PoetryResponse, error) {
	if err := s.repo.Save(ctx, poem); err != nil {
		return nil, fmt.Errorf("save poem %q: %w", poem.ID, err)
	}
	s.invalidate(ctx)

	saved, err := s.repo.GetByID(ctx, poem.ID)
	if err != nil {
		return nil, fmt.Errorf("reload poem %q: %w", poem.ID, err)
	}
	if saved == nil {
		saved = poem
	}
	resp := toResponse(saved)
	return &resp, nil
}

// DeletePoem removes a poem; repository.ErrPoemNotFound when it is absent.
func (s *PoetryService) DeletePoem(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *PoetryService) invalidate(ctx context.Context) {
	if s.pages == nil {
		return
	}
	if err := s.pages.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear page cache", "err", err)
	}
}
