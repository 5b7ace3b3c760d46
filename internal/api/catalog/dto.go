package catalog

import (
	"TryOnGolang/internal/entity"
	"time"
)

type CreateGlassesRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Color       string `json:"color" validate:"omitempty,max=32"`
	Description string `json:"description" validate:"omitempty,max=1024"`
	AssetPath   string `json:"asset_path" validate:"required,startswith=/,max=512"`
	PhotoPath   string `json:"photo_path" validate:"omitempty,max=512"`
}

type UpdateGlassesRequest struct {
	Name        string `json:"name" validate:"omitempty,min=2,max=128"`
	Color       string `json:"color" validate:"omitempty,max=32"`
	Description string `json:"description" validate:"omitempty,max=1024"`
	AssetPath   string `json:"asset_path" validate:"omitempty,startswith=/,max=512"`
	PhotoPath   string `json:"photo_path" validate:"omitempty,max=512"`
}

type GlassesResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	AssetPath   string    `json:"asset_path"`
	PhotoPath   string    `json:"photo_path"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type GlassesListResponse struct {
	Glasses []GlassesResponse `json:"glasses"`
	Total   int               `json:"total"`
}

type GlassesStatsResponse struct {
	TotalGlasses  int `json:"total_glasses"`
	AddedLastWeek int `json:"added_last_week"`
}

// StockGlasses are the models shipped with the web client.
var StockGlasses = []CreateGlassesRequest{
	{Name: "Classic Grey", Color: "grey", AssetPath: "/3d/Models/glasses/grey/grey.gltf"},
	{Name: "Classic Black", Color: "black", AssetPath: "/3d/Models/glasses/black/black.gltf"},
	{Name: "Classic Brown", Color: "brown", AssetPath: "/3d/Models/glasses/brown/brown.gltf"},
}

func ToGlassesResponse(g entity.Glasses) GlassesResponse {
	return GlassesResponse{
		ID:          g.ID,
		Name:        g.Name,
		Color:       g.Color,
		Description: g.Description,
		AssetPath:   g.AssetPath,
		PhotoPath:   g.PhotoPath,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}
