package history

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"immo-workers/internal/common/database"

	"github.com/google/uuid"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore keeps saved calculations in a self-hosted table. The column
// names follow the configured schema.
type PostgresStore struct {
	db     *database.PostgresClient
	table  string
	schema Schema
}

func NewPostgresStore(db *database.PostgresClient, table string, schema Schema) (*PostgresStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid history table name %q", table)
	}
	return &PostgresStore{db: db, table: table, schema: schema}, nil
}

func (s *PostgresStore) columns() string {
	tool, input, result := s.schema.fieldNames()
	return fmt.Sprintf("id, user_email, %s, tool_name, %s, %s, name, is_favorite", tool, input, result)
}

func (s *PostgresStore) Create(ctx context.Context, calc *SavedCalculation) (*SavedCalculation, error) {
	input, err := json.Marshal(calc.CalculationData)
	if err != nil {
		return nil, fmt.Errorf("encode calculation data: %w", err)
	}
	result, err := json.Marshal(calc.ResultData)
	if err != nil {
		return nil, fmt.Errorf("encode result data: %w", err)
	}

	saved := *calc
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at",
		s.table, s.columns())
	err = s.db.QueryRow(ctx, query,
		saved.ID, saved.UserEmail, saved.ToolID, saved.ToolName,
		string(input), string(result), saved.Name, saved.IsFavorite,
	).Scan(&saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert saved calculation: %w", err)
	}
	return &saved, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userEmail string, limit int) ([]SavedCalculation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(
		"SELECT %s, created_at FROM %s WHERE user_email = $1 ORDER BY created_at DESC LIMIT $2",
		s.columns(), s.table)
	rows, err := s.db.Query(ctx, query, userEmail, limit)
	if err != nil {
		return nil, fmt.Errorf("list saved calculations: %w", err)
	}
	defer rows.Close()

	var out []SavedCalculation
	for rows.Next() {
		var (
			calc          SavedCalculation
			input, result []byte
			created       time.Time
		)
		if err := rows.Scan(&calc.ID, &calc.UserEmail, &calc.ToolID, &calc.ToolName,
			&input, &result, &calc.Name, &calc.IsFavorite, &created); err != nil {
			return nil, fmt.Errorf("scan saved calculation: %w", err)
		}
		if len(input) > 0 {
			if err := json.Unmarshal(input, &calc.CalculationData); err != nil {
				return nil, fmt.Errorf("decode calculation data for %s: %w", calc.ID, err)
			}
		}
		if len(result) > 0 {
			if err := json.Unmarshal(result, &calc.ResultData); err != nil {
				return nil, fmt.Errorf("decode result data for %s: %w", calc.ID, err)
			}
		}
		calc.CreatedAt = created
		out = append(out, calc)
	}
	return out, rows.Err()
}
