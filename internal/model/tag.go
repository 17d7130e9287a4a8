package model

type Tag struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;not null"`
}

// PoemTag is the join row between a poem and a tag.
type PoemTag struct {
	PoemID string `gorm:"primaryKey"`
	TagID  int64  `gorm:"primaryKey"`
}
