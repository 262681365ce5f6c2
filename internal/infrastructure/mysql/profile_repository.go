package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// MySQLProfileRepository reads display names from the profiles table.
type MySQLProfileRepository struct {
	db *sql.DB
}

func NewMySQLProfileRepository(db *sql.DB) *MySQLProfileRepository {
	return &MySQLProfileRepository{db: db}
}

func (r *MySQLProfileRepository) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(userIDs)), ", ")
	query := `SELECT id, display_name FROM profiles WHERE id IN (` + placeholders + `)`

	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup display names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if name.Valid {
			names[id] = name.String
		}
	}
	return names, rows.Err()
}
