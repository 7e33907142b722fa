package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Stanux/walking-safely-sub002/internal/lib/geo"
	"github.com/Stanux/walking-safely-sub002/internal/lib/risk"
)

// RegionStore persists risk regions using pgx and plain SQL. It implements
// routing.RegionSource for deployments that ingest incident data into
// Postgres instead of reading a live feed.
type RegionStore struct {
	pool *pgxpool.Pool
}

// NewRegionStore constructs a RegionStore over an existing pool
func NewRegionStore(pool *pgxpool.Pool) *RegionStore {
	return &RegionStore{pool: pool}
}

// Connect opens a pgx pool for the given DSN and pings it
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

// GetRegionsNear returns all regions whose centroid falls inside bounds
func (s *RegionStore) GetRegionsNear(ctx context.Context, bounds geo.BoundingBox) ([]risk.Region, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, latitude, longitude, radius_meters, risk_index, dominant_crime_type
		FROM risk_regions
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
	`,
		bounds.MinLat,
		bounds.MaxLat,
		bounds.MinLng,
		bounds.MaxLng,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk regions: %w", err)
	}
	defer rows.Close()

	var regions []risk.Region
	for rows.Next() {
		var region risk.Region
		err := rows.Scan(
			&region.ID,
			&region.Centroid.Latitude,
			&region.Centroid.Longitude,
			&region.RadiusMeters,
			&region.RiskIndex,
			&region.DominantCrimeType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan risk region: %w", err)
		}
		regions = append(regions, region)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read risk regions: %w", err)
	}

	return regions, nil
}

// UpsertRegion inserts or refreshes one region, keyed by feed id
func (s *RegionStore) UpsertRegion(ctx context.Context, region risk.Region) error {
	if region.RiskIndex < 0 || region.RiskIndex > 100 {
		return risk.ErrInvalidRiskIndex
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO risk_regions (
			id, latitude, longitude, radius_meters, risk_index,
			dominant_crime_type, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			radius_meters = EXCLUDED.radius_meters,
			risk_index = EXCLUDED.risk_index,
			dominant_crime_type = EXCLUDED.dominant_crime_type,
			updated_at = now()
	`,
		region.ID,
		region.Centroid.Latitude,
		region.Centroid.Longitude,
		region.RadiusMeters,
		region.RiskIndex,
		region.DominantCrimeType,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert risk region: %w", err)
	}
	return nil
}

// DeleteStaleRegions removes regions not refreshed within the retention
// window and returns how many rows were deleted
func (s *RegionStore) DeleteStaleRegions(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM risk_regions
		WHERE updated_at < now() - ($1 || ' days')::interval
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale risk regions: %w", err)
	}
	return tag.RowsAffected(), nil
}
