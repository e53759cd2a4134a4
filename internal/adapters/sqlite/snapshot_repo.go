package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
)

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Load(ctx context.Context) (domain.Snapshot, error) {
	var b []byte
	err := r.db.QueryRowContext(ctx, `SELECT value_json FROM snapshots WHERE id = 1`).Scan(&b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Premier lancement : pas encore de données.
			return domain.Snapshot{}, nil
		}
		return domain.Snapshot{}, err
	}
	var s domain.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		// Si corrompu : on repart de zéro.
		return domain.Snapshot{}, nil
	}
	return s, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots(id, schema_version, value_json, fetched_at, updated_at)
		VALUES(1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			value_json = excluded.value_json,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at
	`, domain.SnapshotVersion, b, snapshot.FetchedAt.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339))
	return err
}
