package catalogRepository

const (
	queryCreateGlasses = `
		INSERT INTO glasses (
			id,
			name,
			color,
			description,
			asset_path,
			photo_path,
			created_at,
			updated_at
		) VALUES (
			:id,
			:name,
			:color,
			:description,
			:asset_path,
			:photo_path,
			:created_at,
			:updated_at
		)
	`

	queryCreateGlassesIfAbsent = queryCreateGlasses + `
		ON CONFLICT (asset_path) DO NOTHING
	`

	queryGetGlassesByID = `
		SELECT
			id,
			name,
			color,
			description,
			asset_path,
			photo_path,
			created_at,
			updated_at
		FROM glasses
		WHERE id = :id
	`

	queryGetAllGlasses = `
		SELECT
			id,
			name,
			color,
			description,
			asset_path,
			photo_path,
			created_at,
			updated_at
		FROM glasses
		ORDER BY created_at ASC, id ASC
		LIMIT :limit OFFSET :offset
	`

	queryCountAllGlasses = `
		SELECT COUNT(*)
		FROM glasses
	`

	queryGetStats = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE created_at >= :since) AS added_last_week
		FROM glasses
	`

	queryUpdateGlasses = `
		UPDATE glasses
		SET
			name = CASE WHEN :name = '' THEN name ELSE :name END,
			color = CASE WHEN :color = '' THEN color ELSE :color END,
			description = CASE WHEN :description = '' THEN description ELSE :description END,
			asset_path = CASE WHEN :asset_path = '' THEN asset_path ELSE :asset_path END,
			photo_path = CASE WHEN :photo_path = '' THEN photo_path ELSE :photo_path END,
			updated_at = :updated_at
		WHERE id = :id
	`

	queryDeleteGlasses = `
		DELETE FROM glasses
		WHERE id = :id
	`
)
