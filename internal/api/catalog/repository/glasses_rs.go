package catalogRepository

import (
	"TryOnGolang/internal/api/catalog"
	"TryOnGolang/internal/entity"
	contextPkg "TryOnGolang/pkg/context"
	"context"
	"database/sql"
	"errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"time"
)

const uniqueViolation = "23505"

type GlassesDB struct {
	ID          sql.NullString `db:"id"`
	Name        sql.NullString `db:"name"`
	Color       sql.NullString `db:"color"`
	Description sql.NullString `db:"description"`
	AssetPath   sql.NullString `db:"asset_path"`
	PhotoPath   sql.NullString `db:"photo_path"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func glassesArgs(glasses entity.Glasses) map[string]interface{} {
	return map[string]interface{}{
		"id":          glasses.ID,
		"name":        glasses.Name,
		"color":       glasses.Color,
		"description": glasses.Description,
		"asset_path":  glasses.AssetPath,
		"photo_path":  glasses.PhotoPath,
		"created_at":  glasses.CreatedAt,
		"updated_at":  glasses.UpdatedAt,
	}
}

func (r *glassesRepository) CreateGlasses(ctx context.Context, glasses entity.Glasses) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryCreateGlasses, glassesArgs(glasses))
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateGlasses")
		return err
	}
	query = r.q.Rebind(query)

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"asset_path": glasses.AssetPath,
			}).Warn("CreateGlasses duplicate asset path")
			return catalog.ErrAssetPathTaken
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating glasses")
		return err
	}

	return nil
}

// CreateGlassesIfAbsent inserts glasses unless its asset path is already
// catalogued, and reports whether a row was added.
func (r *glassesRepository) CreateGlassesIfAbsent(ctx context.Context, glasses entity.Glasses) (bool, error) {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryCreateGlassesIfAbsent, glassesArgs(glasses))
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateGlassesIfAbsent named query preparation err")
		return false, err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateGlassesIfAbsent execution err")
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *glassesRepository) GetGlassesByID(ctx context.Context, id string) (entity.Glasses, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var glasses GlassesDB

	query, args, err := sqlx.Named(queryGetGlassesByID, map[string]interface{}{
		"id": id,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetGlassesByID named query preparation err")
		return entity.Glasses{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&glasses); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         id,
			}).Warn("GetGlassesByID no rows found")
			return entity.Glasses{}, catalog.ErrGlassesNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetGlassesByID execution err")
		return entity.Glasses{}, err
	}

	return r.makeGlasses(glasses), nil
}

func (r *glassesRepository) GetAllGlasses(ctx context.Context, limit, offset int) ([]entity.Glasses, int, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var rows []GlassesDB
	var total int

	if err := r.q.QueryRowxContext(ctx, queryCountAllGlasses).Scan(&total); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountAllGlasses execution err")
		return nil, 0, err
	}

	query, args, err := sqlx.Named(queryGetAllGlasses, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAllGlasses named query preparation err")
		return nil, 0, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAllGlasses execution err")
		return nil, 0, err
	}

	glasses := make([]entity.Glasses, 0, len(rows))
	for _, row := range rows {
		glasses = append(glasses, r.makeGlasses(row))
	}

	return glasses, total, nil
}

func (r *glassesRepository) GetStats(ctx context.Context, since time.Time) (entity.GlassesStats, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var stats entity.GlassesStats

	query, args, err := sqlx.Named(queryGetStats, map[string]interface{}{
		"since": since,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetStats named query preparation err")
		return entity.GlassesStats{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&stats); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetStats execution err")
		return entity.GlassesStats{}, err
	}

	return stats, nil
}

func (r *glassesRepository) UpdateGlasses(ctx context.Context, glasses entity.Glasses) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryUpdateGlasses, glassesArgs(glasses))
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateGlasses named query preparation err")
		return err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrAssetPathTaken
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateGlasses execution err")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateGlasses rows affected err")
		return err
	}

	if rowsAffected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"id":         glasses.ID,
		}).Warn("UpdateGlasses no rows affected")
		return catalog.ErrGlassesNotFound
	}

	return nil
}

func (r *glassesRepository) DeleteGlasses(ctx context.Context, id string) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryDeleteGlasses, map[string]interface{}{
		"id": id,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteGlasses named query preparation err")
		return err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteGlasses execution err")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"id":         id,
		}).Warn("DeleteGlasses no rows affected")
		return catalog.ErrGlassesNotFound
	}

	return nil
}

func (r *glassesRepository) makeGlasses(glasses GlassesDB) entity.Glasses {
	return entity.Glasses{
		ID:          glasses.ID.String,
		Name:        glasses.Name.String,
		Color:       glasses.Color.String,
		Description: glasses.Description.String,
		AssetPath:   glasses.AssetPath.String,
		PhotoPath:   glasses.PhotoPath.String,
		CreatedAt:   glasses.CreatedAt,
		UpdatedAt:   glasses.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
