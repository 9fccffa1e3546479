package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"CourtCast/internal/domain/models"
	"CourtCast/internal/domain/repository"
)

// ClickHousePredictionStore implements PredictionStore on ClickHouse. Each
// row carries a handful of queryable columns plus the full JSON payload, so
// new prediction fields never need a migration.
type ClickHousePredictionStore struct {
	db *sql.DB
}

func NewClickHousePredictionStore(db *sql.DB) repository.PredictionStore {
	return &ClickHousePredictionStore{db: db}
}

// SchemaStatements returns the idempotent DDL for the store's tables.
func SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id String,
			created_at DateTime,
			event String,
			competitor1 String,
			competitor2 String,
			surface LowCardinality(String),
			winner UInt8,
			confidence UInt8,
			mode LowCardinality(String),
			payload String
		) ENGINE = MergeTree() ORDER BY (created_at, id)`,
		`CREATE TABLE IF NOT EXISTS results (
			prediction_id String,
			actual_winner String,
			is_correct UInt8,
			recorded_at DateTime
		) ENGINE = MergeTree() ORDER BY (recorded_at, prediction_id)`,
		`CREATE TABLE IF NOT EXISTS training_records (
			created_at DateTime,
			schema_version LowCardinality(String),
			winner UInt8,
			payload String
		) ENGINE = MergeTree() ORDER BY created_at`,
	}
}

func (s *ClickHousePredictionStore) SavePrediction(ctx context.Context, p *models.Prediction) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}
	q := `INSERT INTO predictions
		(id, created_at, event, competitor1, competitor2, surface, winner, confidence, mode, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		p.ID,
		p.CreatedAt,
		p.Match.Event,
		p.Match.Competitor1.Name,
		p.Match.Competitor2.Name,
		string(p.Match.Surface),
		uint8(p.Winner),
		uint8(p.Confidence),
		p.Mode,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *ClickHousePredictionStore) GetPrediction(ctx context.Context, id string) (*models.Prediction, error) {
	var payload string
	q := `SELECT payload FROM predictions WHERE id = ? LIMIT 1`
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("prediction %s not found", id)
		}
		return nil, fmt.Errorf("query prediction: %w", err)
	}
	var p models.Prediction
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("decode prediction %s: %w", id, err)
	}
	return &p, nil
}

func (s *ClickHousePredictionStore) ListPredictions(ctx context.Context, limit int) ([]models.Prediction, error) {
	q := `SELECT payload FROM predictions ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var out []models.Prediction
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var p models.Prediction
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *ClickHousePredictionStore) SaveResult(ctx context.Context, r *models.Result) error {
	q := `INSERT INTO results (prediction_id, actual_winner, is_correct, recorded_at) VALUES (?, ?, ?, ?)`
	correct := uint8(0)
	if r.IsCorrect {
		correct = 1
	}
	if _, err := s.db.ExecContext(ctx, q, r.PredictionID, r.ActualWinner, correct, r.RecordedAt); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ClickHousePredictionStore) Accuracy(ctx context.Context) (models.AccuracyReport, error) {
	var report models.AccuracyReport
	q := `SELECT count(), countIf(is_correct = 1) FROM results`
	if err := s.db.QueryRowContext(ctx, q).Scan(&report.Total, &report.Correct); err != nil {
		return models.AccuracyReport{}, fmt.Errorf("accuracy query: %w", err)
	}
	if report.Total > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Total)
	}
	return report, nil
}

func (s *ClickHousePredictionStore) SaveTrainingRecords(ctx context.Context, recs []models.TrainingRecord) error {
	if len(recs) == 0 {
		return nil
	}
	// Multi-row VALUES inserts, chunked to bound statement size.
	const chunkSize = 2000
	now := time.Now().UTC()
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, r := range recs[start:end] {
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode training record: %w", err)
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, now, r.Features.SchemaVersion, uint8(r.Winner), string(payload))
		}
		q := fmt.Sprintf(
			"INSERT INTO training_records (created_at, schema_version, winner, payload) VALUES %s",
			strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert training records: %w", err)
		}
	}
	return nil
}

func (s *ClickHousePredictionStore) ListTrainingRecords(ctx context.Context, limit int) ([]models.TrainingRecord, error) {
	q := `SELECT payload FROM training_records ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list training records: %w", err)
	}
	defer rows.Close()

	var out []models.TrainingRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r models.TrainingRecord
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
