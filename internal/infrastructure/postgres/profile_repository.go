package postgres

import (
	"context"
	"fmt"
)

type PostgresProfileRepository struct {
	db DB
}

func NewPostgresProfileRepository(db DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

func (r *PostgresProfileRepository) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id, display_name FROM profiles WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("lookup display names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var name *string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if name != nil {
			names[id] = *name
		}
	}
	return names, rows.Err()
}
