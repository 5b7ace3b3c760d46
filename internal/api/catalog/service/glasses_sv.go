package catalogService

import (
	"TryOnGolang/internal/api/catalog"
	"TryOnGolang/internal/entity"
	contextPkg "TryOnGolang/pkg/context"
	"errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *catalogService) CreateGlasses(ctx context.Context, req catalog.CreateGlassesRequest) (entity.Glasses, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.catalogRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return entity.Glasses{}, err
	}

	glasses, err := s.newGlasses(req)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return entity.Glasses{}, err
	}

	if err := repo.Glasses.CreateGlasses(ctx, glasses); err != nil {
		if errors.Is(err, catalog.ErrAssetPathTaken) {
			return entity.Glasses{}, err
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create glasses")
		return entity.Glasses{}, catalog.ErrCreateGlasses
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"id":         glasses.ID,
		"asset_path": glasses.AssetPath,
	}).Info("Glasses added to catalog")

	return glasses, nil
}

func (s *catalogService) GetGlassesByID(ctx context.Context, id string) (entity.Glasses, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.catalogRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return entity.Glasses{}, err
	}

	glasses, err := repo.Glasses.GetGlassesByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrGlassesNotFound) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         id,
			}).Warn("Glasses not found")
		} else {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         id,
				"error":      err.Error(),
			}).Error("Failed to get glasses")
		}
		return entity.Glasses{}, err
	}

	return glasses, nil
}

func (s *catalogService) GetAllGlasses(ctx context.Context, page, limit int) (*catalog.GlassesListResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.catalogRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit

	glassesList, total, err := repo.Glasses.GetAllGlasses(ctx, limit, offset)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"page":       page,
			"limit":      limit,
			"error":      err.Error(),
		}).Error("Failed to get glasses")
		return nil, err
	}

	response := &catalog.GlassesListResponse{
		Glasses: make([]catalog.GlassesResponse, 0, len(glassesList)),
		Total:   total,
	}
	for _, g := range glassesList {
		response.Glasses = append(response.Glasses, catalog.ToGlassesResponse(g))
	}

	return response, nil
}

func (s *catalogService) UpdateGlasses(ctx context.Context, id string, req catalog.UpdateGlassesRequest) error {
	requestID := contextPkg.GetRequestID(ctx)

	if req == (catalog.UpdateGlassesRequest{}) {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"id":         id,
		}).Warn("Update request without fields")
		return catalog.ErrInvalidGlassesData
	}

	repo, err := s.catalogRepo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return err
	}
	defer repo.Rollback()

	err = repo.Glasses.UpdateGlasses(ctx, entity.Glasses{
		ID:          id,
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
		AssetPath:   req.AssetPath,
		PhotoPath:   req.PhotoPath,
		UpdatedAt:   s.now(),
	})
	if err != nil {
		if errors.Is(err, catalog.ErrGlassesNotFound) || errors.Is(err, catalog.ErrAssetPathTaken) {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"id":         id,
			"error":      err.Error(),
		}).Error("Failed to update glasses")
		return catalog.ErrUpdateGlasses
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit transaction")
		return catalog.ErrUpdateGlasses
	}

	return nil
}

func (s *catalogService) DeleteGlasses(ctx context.Context, id string) error {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.catalogRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return err
	}

	if err := repo.Glasses.DeleteGlasses(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrGlassesNotFound) {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"id":         id,
			"error":      err.Error(),
		}).Error("Failed to delete glasses")
		return catalog.ErrDeleteGlasses
	}

	return nil
}

func (s *catalogService) GetStats(ctx context.Context) (*catalog.GlassesStatsResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.catalogRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return nil, err
	}

	stats, err := repo.Glasses.GetStats(ctx, s.now().Add(-statsWindow))
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to get catalog stats")
		return nil, err
	}

	return &catalog.GlassesStatsResponse{
		TotalGlasses:  stats.Total,
		AddedLastWeek: stats.AddedLastWeek,
	}, nil
}

// Seed adds the stock models that are not catalogued yet and returns how
// many were inserted. Running it twice is a no-op.
func (s *catalogService) Seed(ctx context.Context) (int, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.catalogRepo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return 0, err
	}
	defer repo.Rollback()

	inserted := 0
	for _, req := range catalog.StockGlasses {
		glasses, err := s.newGlasses(req)
		if err != nil {
			return 0, err
		}

		created, err := repo.Glasses.CreateGlassesIfAbsent(ctx, glasses)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"asset_path": req.AssetPath,
				"error":      err.Error(),
			}).Error("Failed to seed glasses")
			return 0, catalog.ErrCreateGlasses
		}
		if created {
			inserted++
		}
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit transaction")
		return 0, catalog.ErrCreateGlasses
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"inserted":   inserted,
	}).Info("Catalog seeded")

	return inserted, nil
}

// AssetPath resolves a catalog id to the model path handed to the asset
// manager.
func (s *catalogService) AssetPath(ctx context.Context, glassesID string) (string, error) {
	glasses, err := s.GetGlassesByID(ctx, glassesID)
	if err != nil {
		return "", err
	}
	return glasses.AssetPath, nil
}

func (s *catalogService) newGlasses(req catalog.CreateGlassesRequest) (entity.Glasses, error) {
	now := s.now()

	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return entity.Glasses{}, err
	}

	return entity.Glasses{
		ID:          id,
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
		AssetPath:   req.AssetPath,
		PhotoPath:   req.PhotoPath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
