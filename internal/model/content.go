package model

// PoemContent is one line (or stanza) of a poem's body.
type PoemContent struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	PoemID     string `gorm:"not null;index"`
	Content    string `gorm:"not null"`
	OrderIndex int    `gorm:"not null"`
}

type PoemTranslation struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	PoemID      string `gorm:"not null;index"`
	Translation string `gorm:"not null"`
	Source      string
	OrderIndex  int `gorm:"not null"`
}

type PoemNote struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	PoemID     string `gorm:"not null;index"`
	Note       string `gorm:"not null"`
	OrderIndex int    `gorm:"not null"`
}

type PoemAppreciation struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	PoemID       string `gorm:"not null;index"`
	Appreciation string `gorm:"not null"`
	OrderIndex   int    `gorm:"not null"`
}
