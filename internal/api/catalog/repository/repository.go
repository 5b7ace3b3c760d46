package catalogRepository

import (
	"TryOnGolang/internal/entity"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Glasses:  &glassesRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type GlassesRepository interface {
	CreateGlasses(ctx context.Context, glasses entity.Glasses) error
	CreateGlassesIfAbsent(ctx context.Context, glasses entity.Glasses) (bool, error)
	GetGlassesByID(ctx context.Context, id string) (entity.Glasses, error)
	GetAllGlasses(ctx context.Context, limit, offset int) ([]entity.Glasses, int, error)
	GetStats(ctx context.Context, since time.Time) (entity.GlassesStats, error)
	UpdateGlasses(ctx context.Context, glasses entity.Glasses) error
	DeleteGlasses(ctx context.Context, id string) error
}

type Client struct {
	Glasses GlassesRepository

	Commit   func() error
	Rollback func() error
}

type glassesRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
