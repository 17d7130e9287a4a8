package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"poem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PoetryRepository struct {
	db *gorm.DB
}

type PoetryRepositoryInterface interface {
	Count(ctx context.Context) (int64, error)
	FindAt(ctx context.Context, offset int) (*model.Poem, error)
	GetByID(ctx context.Context, id string) (*model.Poem, error)
	SearchByTitle(ctx context.Context, title string, offset, limit int) ([]model.Poem, int64, error)
	FindByAuthor(ctx context.Context, author string, offset, limit int) ([]model.Poem, int64, error)
	FindByDynasty(ctx context.Context, dynasty string, offset, limit int) ([]model.Poem, int64, error)
	FindByType(ctx context.Context, poemType string, offset, limit int) ([]model.Poem, int64, error)
	FindByFormat(ctx context.Context, format string, offset, limit int) ([]model.Poem, int64, error)
	FindByTag(ctx context.Context, tagName string, offset, limit int) ([]model.Poem, int64, error)
	FullTextSearch(ctx context.Context, keyword string, offset, limit int) ([]model.Poem, int64, error)
	Save(ctx context.Context, poem *model.Poem) error
	Delete(ctx context.Context, id string) error
}

var _ PoetryRepositoryInterface = (*PoetryRepository)(nil)

func NewPoetryRepository(db *gorm.DB) *PoetryRepository {
	return &PoetryRepository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns free text into a LIKE pattern matching it anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func byOrderIndex(db *gorm.DB) *gorm.DB {
	return db.Order("order_index")
}

// withRelations loads every child table of a poem, each in display order.
func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Contents", byOrderIndex).
		Preload("Translations", byOrderIndex).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Notes", byOrderIndex).
		Preload("Appreciations", byOrderIndex)
}

func (r *PoetryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Poem{}).Count(&count).Error
	return count, err
}

// FindAt returns the poem at the given position in id order, or nil when the
// offset is past the end.
func (r *PoetryRepository) FindAt(ctx context.Context, offset int) (*model.Poem, error) {
	var poems []model.Poem
	err := r.db.WithContext(ctx).
		Scopes(withRelations).
		Order("poems.id").
		Offset(offset).
		Limit(1).
		Find(&poems).Error
	if err != nil {
		return nil, err
	}
	if len(poems) == 0 {
		return nil, nil
	}
	return &poems[0], nil
}

func (r *PoetryRepository) GetByID(ctx context.Context, id string) (*model.Poem, error) {
	var poem model.Poem
	if err := r.db.WithContext(ctx).Scopes(withRelations).Where("id = ?", id).First(&poem).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &poem, nil
}

func (r *PoetryRepository) SearchByTitle(ctx context.Context, title string, offset, limit int) ([]model.Poem, int64, error) {
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("poems.title ILIKE ?", containsPattern(title))
	}, offset, limit)
}

func (r *PoetryRepository) FindByAuthor(ctx context.Context, author string, offset, limit int) ([]model.Poem, int64, error) {
	return r.paginate(ctx, whereColumn("author", author), offset, limit)
}

func (r *PoetryRepository) FindByDynasty(ctx context.Context, dynasty string, offset, limit int) ([]model.Poem, int64, error) {
	return r.paginate(ctx, whereColumn("dynasty", dynasty), offset, limit)
}

func (r *PoetryRepository) FindByType(ctx context.Context, poemType string, offset, limit int) ([]model.Poem, int64, error) {
	return r.paginate(ctx, whereColumn("type", poemType), offset, limit)
}

func (r *PoetryRepository) FindByFormat(ctx context.Context, format string, offset, limit int) ([]model.Poem, int64, error) {
	return r.paginate(ctx, whereColumn("format", format), offset, limit)
}

func (r *PoetryRepository) FindByTag(ctx context.Context, tagName string, offset, limit int) ([]model.Poem, int64, error) {
	tagged := r.db.Table("poem_tags").
		Select("poem_tags.poem_id").
		Joins("JOIN tags ON tags.id = poem_tags.tag_id").
		Where("tags.name = ?", tagName)

	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("poems.id IN (?)", tagged)
	}, offset, limit)
}

// FullTextSearch matches the keyword against title, author and every content
// line. A poem matching on several lines is still returned once.
func (r *PoetryRepository) FullTextSearch(ctx context.Context, keyword string, offset, limit int) ([]model.Poem, int64, error) {
	pattern := containsPattern(keyword)
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"poems.title ILIKE @p OR poems.author ILIKE @p OR EXISTS (SELECT 1 FROM poem_contents pc WHERE pc.poem_id = poems.id AND pc.content ILIKE @p)",
			map[string]any{"p": pattern},
		)
	}, offset, limit)
}

func whereColumn(column, value string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Table: "poems", Name: column}, Value: value})
	}
}

func (r *PoetryRepository) paginate(ctx context.Context, filter func(*gorm.DB) *gorm.DB, offset, limit int) ([]model.Poem, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.Poem{}).Scopes(filter).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count poems: %w", err)
	}
	if total == 0 || int64(offset) >= total {
		return []model.Poem{}, total, nil
	}

	var poems []model.Poem
	err := base.Scopes(withRelations).
		Order("poems.id").
		Offset(offset).
		Limit(limit).
		Find(&poems).Error
	if err != nil {
		return nil, 0, fmt.Errorf("load poems: %w", err)
	}
	return poems, total, nil
}

// Save upserts a poem and replaces all of its child rows and tag links.
// Tags are matched by name and created when missing.
func (r *PoetryRepository) Save(ctx context.Context, poem *model.Poem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
			Omit(clause.Associations).
			Create(poem).Error
		if err != nil {
			return fmt.Errorf("upsert poem: %w", err)
		}

		if err := deleteChildren(tx, poem.ID); err != nil {
			return err
		}

		for i := range poem.Contents {
			poem.Contents[i].ID, poem.Contents[i].PoemID, poem.Contents[i].OrderIndex = 0, poem.ID, i
		}
		for i := range poem.Translations {
			poem.Translations[i].ID, poem.Translations[i].PoemID, poem.Translations[i].OrderIndex = 0, poem.ID, i
		}
		for i := range poem.Notes {
			poem.Notes[i].ID, poem.Notes[i].PoemID, poem.Notes[i].OrderIndex = 0, poem.ID, i
		}
		for i := range poem.Appreciations {
			poem.Appreciations[i].ID, poem.Appreciations[i].PoemID, poem.Appreciations[i].OrderIndex = 0, poem.ID, i
		}

		for _, rows := range []any{&poem.Contents, &poem.Translations, &poem.Notes, &poem.Appreciations} {
			if err := createAll(tx, rows); err != nil {
				return err
			}
		}

		tags, err := resolveTags(tx, poem.Tags)
		if err != nil {
			return err
		}
		poem.Tags = tags

		if len(tags) == 0 {
			return nil
		}
		links := make([]model.PoemTag, len(tags))
		for i, tag := range tags {
			links[i] = model.PoemTag{PoemID: poem.ID, TagID: tag.ID}
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("link tags: %w", err)
		}
		return nil
	})
}

func (r *PoetryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChildren(tx, id); err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Poem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPoemNotFound
		}
		return nil
	})
}

func deleteChildren(tx *gorm.DB, poemID string) error {
	children := []any{
		&model.PoemContent{},
		&model.PoemTranslation{},
		&model.PoemNote{},
		&model.PoemAppreciation{},
		&model.PoemTag{},
	}
	for _, child := range children {
		if err := tx.Where("poem_id = ?", poemID).Delete(child).Error; err != nil {
			return fmt.Errorf("delete %T: %w", child, err)
		}
	}
	return nil
}

// createAll inserts a pointer to a slice of rows; empty slices are skipped.
func createAll(tx *gorm.DB, rows any) error {
	var n int
	switch v := rows.(type) {
	case *[]model.PoemContent:
		n = len(*v)
	case *[]model.PoemTranslation:
		n = len(*v)
	case *[]model.PoemNote:
		n = len(*v)
	case *[]model.PoemAppreciation:
		n = len(*v)
	}
	if n == 0 {
		return nil
	}
	if err := tx.Create(rows).Error; err != nil {
		return fmt.Errorf("insert %T: %w", rows, err)
	}
	return nil
}

// resolveTags looks every tag up by name, creating the missing ones.
// Duplicate and blank names are dropped.
func resolveTags(tx *gorm.DB, requested []model.Tag) ([]model.Tag, error) {
	seen := make(map[string]struct{}, len(requested))
	tags := make([]model.Tag, 0, len(requested))
	for _, t := range requested {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		tag := model.Tag{Name: name}
		if err := tx.Where(model.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, fmt.Errorf("resolve tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
