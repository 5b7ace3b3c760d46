package catalog

import "TryOnGolang/pkg/response"

var (
	ErrGlassesNotFound    = response.NewError(404, "glasses not found")
	ErrAssetPathTaken     = response.NewError(409, "asset path already used by another glasses")
	ErrCreateGlasses      = response.NewError(500, "failed to create glasses")
	ErrUpdateGlasses      = response.NewError(500, "failed to update glasses")
	ErrDeleteGlasses      = response.NewError(500, "failed to delete glasses")
	ErrInvalidGlassesData = response.NewError(400, "invalid glasses data")
)
