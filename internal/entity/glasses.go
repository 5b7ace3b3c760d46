package entity

import "time"

type Glasses struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Color       string    `db:"color"`
	Description string    `db:"description"`
	AssetPath   string    `db:"asset_path"`
	PhotoPath   string    `db:"photo_path"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type GlassesStats struct {
	Total         int `db:"total"`
	AddedLastWeek int `db:"added_last_week"`
}
