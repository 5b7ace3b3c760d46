package tryonService

import (
	"TryOnGolang/internal/api/tryon"
	"TryOnGolang/internal/tryon/asset"
	"TryOnGolang/internal/tryon/session"
	"TryOnGolang/pkg/utils"
	"context"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/sirupsen/logrus"
	"sync"
	"time"
)

type Config struct {
	DefaultAssetPath string
	LoadTimeout      time.Duration
	StillMaxWidth    uint
	StillMaxHeight   uint
	MaxConnections   int
}

func DefaultConfig() Config {
	return Config{
		DefaultAssetPath: session.DefaultAssetPath,
		LoadTimeout:      30 * time.Second,
		StillMaxWidth:    800,
		StillMaxHeight:   600,
		MaxConnections:   32,
	}
}

type ITryOnService interface {
	Connect(ctx context.Context, send func(tryon.ServerMessage)) (*Connection, error)
	Disconnect(id string)
	GetConnection(id string) (*Connection, error)
	GetConnections() tryon.ConnectionListResponse
	Shutdown()
}

type tryonService struct {
	log         *logrus.Logger
	loader      asset.Loader
	catalog     session.Catalog
	newDetector session.DetectorFactory
	utils       utils.IUtils
	cfg         Config
	connections cmap.ConcurrentMap[string, *Connection]

	// admitMu serializes the capacity check with the insert in Connect.
	admitMu sync.Mutex
}

func NewTryOnService(
	log *logrus.Logger,
	loader asset.Loader,
	catalog session.Catalog,
	newDetector session.DetectorFactory,
	utils utils.IUtils,
	cfg Config,
) ITryOnService {
	return &tryonService{
		log:         log,
		loader:      loader,
		catalog:     catalog,
		newDetector: newDetector,
		utils:       utils,
		cfg:         cfg,
		connections: cmap.New[*Connection](),
	}
}
