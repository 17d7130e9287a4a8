package model

type Poem struct {
	ID         string `gorm:"primaryKey"`
	Title      string `gorm:"not null"`
	Dynasty    string `gorm:"not null;index"`
	Author     string `gorm:"not null;index"`
	SourceLink string
	Type       string `gorm:"not null;index"`
	Format     string `gorm:"not null;index"`
	UpdateAt   string

	Contents      []PoemContent      `gorm:"foreignKey:PoemID"`
	Translations  []PoemTranslation  `gorm:"foreignKey:PoemID"`
	Tags          []Tag              `gorm:"many2many:poem_tags"`
	Notes         []PoemNote         `gorm:"foreignKey:PoemID"`
	Appreciations []PoemAppreciation `gorm:"foreignKey:PoemID"`
}
