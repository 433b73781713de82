package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const trainColumns = `
	id, train_number, name, source, destination,
	departure_time, arrival_time, duration, runs_on, classes,
	COALESCE(price_by_class, '{}'::jsonb) AS price_by_class,
	COALESCE(seats_by_class, '{}'::jsonb) AS seats_by_class
`

// CreateTrainsTable is the schema of the catalog table
const CreateTrainsTable = `
	CREATE TABLE IF NOT EXISTS trains (
		id             TEXT PRIMARY KEY,
		train_number   TEXT NOT NULL,
		name           TEXT NOT NULL,
		source         TEXT NOT NULL,
		destination    TEXT NOT NULL,
		departure_time TEXT NOT NULL DEFAULT '',
		arrival_time   TEXT NOT NULL DEFAULT '',
		duration       TEXT NOT NULL DEFAULT '',
		runs_on        TEXT[] NOT NULL DEFAULT '{}',
		classes        TEXT[] NOT NULL,
		price_by_class JSONB NOT NULL DEFAULT '{}',
		seats_by_class JSONB NOT NULL DEFAULT '{}',
		sort_order     INT NOT NULL DEFAULT 0,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PostgresCatalogRepository implements CatalogRepository using PostgreSQL with pgxpool
type PostgresCatalogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalogRepository creates a new PostgresCatalogRepository
func NewPostgresCatalogRepository(pool *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{pool: pool}
}

// EnsureSchema creates the trains table when missing
func (r *PostgresCatalogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, CreateTrainsTable); err != nil {
		return fmt.Errorf("failed to create trains table: %w", err)
	}
	return nil
}

// GetTrainByID retrieves a train by its ID
func (r *PostgresCatalogRepository) GetTrainByID(ctx context.Context, id string) (*domain.TrainOffering, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.get_train")
	defer span.End()

	span.SetAttributes(attribute.String("train_id", id))

	query := `SELECT ` + trainColumns + ` FROM trains WHERE id = $1`

	train, err := scanTrain(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTrainNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get train: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return train, nil
}

// ListTrains returns every train ordered by sort_order, then id
func (r *PostgresCatalogRepository) ListTrains(ctx context.Context) ([]*domain.TrainOffering, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.list_trains")
	defer span.End()

	query := `SELECT ` + trainColumns + ` FROM trains ORDER BY sort_order, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list trains: %w", err)
	}
	defer rows.Close()

	var trains []*domain.TrainOffering
	for rows.Next() {
		train, err := scanTrain(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan train: %w", err)
		}
		trains = append(trains, train)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate trains: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(trains)))
	span.SetStatus(codes.Ok, "")
	return trains, nil
}

// Upsert writes trains in the given order
func (r *PostgresCatalogRepository) Upsert(ctx context.Context, trains []*domain.TrainOffering) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.upsert")
	defer span.End()

	query := `
		INSERT INTO trains (
			id, train_number, name, source, destination,
			departure_time, arrival_time, duration, runs_on, classes,
			price_by_class, seats_by_class, sort_order, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (id) DO UPDATE SET
			train_number = EXCLUDED.train_number,
			name = EXCLUDED.name,
			source = EXCLUDED.source,
			destination = EXCLUDED.destination,
			departure_time = EXCLUDED.departure_time,
			arrival_time = EXCLUDED.arrival_time,
			duration = EXCLUDED.duration,
			runs_on = EXCLUDED.runs_on,
			classes = EXCLUDED.classes,
			price_by_class = EXCLUDED.price_by_class,
			seats_by_class = EXCLUDED.seats_by_class,
			sort_order = EXCLUDED.sort_order,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for i, t := range trains {
		priceJSON, _ := json.Marshal(t.PriceByClass)
		seatsJSON, _ := json.Marshal(t.SeatsByClass)
		batch.Queue(query,
			t.ID, t.TrainNumber, t.Name, t.Source, t.Destination,
			t.DepartureTime, t.ArrivalTime, t.Duration, t.RunsOn, t.Classes,
			priceJSON, seatsJSON, i,
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to upsert trains: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(trains)))
	span.SetStatus(codes.Ok, "")
	return nil
}

func scanTrain(row pgx.Row) (*domain.TrainOffering, error) {
	train := &domain.TrainOffering{}
	var priceJSON, seatsJSON []byte

	err := row.Scan(
		&train.ID,
		&train.TrainNumber,
		&train.Name,
		&train.Source,
		&train.Destination,
		&train.DepartureTime,
		&train.ArrivalTime,
		&train.Duration,
		&train.RunsOn,
		&train.Classes,
		&priceJSON,
		&seatsJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(priceJSON, &train.PriceByClass); err != nil {
		return nil, fmt.Errorf("invalid price_by_class for train %s: %w", train.ID, err)
	}
	if err := json.Unmarshal(seatsJSON, &train.SeatsByClass); err != nil {
		return nil, fmt.Errorf("invalid seats_by_class for train %s: %w", train.ID, err)
	}
	return train, nil
}
