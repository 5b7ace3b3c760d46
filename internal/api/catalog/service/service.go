package catalogService

import (
	"TryOnGolang/internal/api/catalog"
	catalogRepository "TryOnGolang/internal/api/catalog/repository"
	"TryOnGolang/internal/entity"
	"TryOnGolang/pkg/utils"
	"context"
	"github.com/sirupsen/logrus"
	"time"
)

const statsWindow = 7 * 24 * time.Hour

type ICatalogService interface {
	CreateGlasses(ctx context.Context, req catalog.CreateGlassesRequest) (entity.Glasses, error)
	GetGlassesByID(ctx context.Context, id string) (entity.Glasses, error)
	GetAllGlasses(ctx context.Context, page, limit int) (*catalog.GlassesListResponse, error)
	UpdateGlasses(ctx context.Context, id string, req catalog.UpdateGlassesRequest) error
	DeleteGlasses(ctx context.Context, id string) error
	GetStats(ctx context.Context) (*catalog.GlassesStatsResponse, error)
	Seed(ctx context.Context) (int, error)
	AssetPath(ctx context.Context, glassesID string) (string, error)
}

type catalogService struct {
	log         *logrus.Logger
	catalogRepo catalogRepository.Repository
	utils       utils.IUtils
	now         func() time.Time
}

func NewCatalogService(
	log *logrus.Logger,
	catalogRepo catalogRepository.Repository,
	utils utils.IUtils,
) ICatalogService {
	return &catalogService{
		log:         log,
		catalogRepo: catalogRepo,
		utils:       utils,
		now:         time.Now,
	}
}
