package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
)

type TrackingRepository struct {
	db *sql.DB
}

func NewTrackingRepository(db *sql.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

type trackingRecord struct {
	Version int      `json:"version"`
	Tracked []string `json:"tracked"`
}

func (r *TrackingRepository) Load(ctx context.Context) (domain.TrackedSet, bool, error) {
	var b []byte
	err := r.db.QueryRowContext(ctx, `SELECT value_json FROM tracking WHERE id = 1`).Scan(&b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TrackedSet{}, false, nil
		}
		return domain.TrackedSet{}, false, err
	}
	var rec trackingRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		// Si corrompu : comme si rien n'était enregistré, /select permet de réparer.
		log.Warn().Err(err).Msg("tracking record unreadable, treated as absent")
		return domain.TrackedSet{}, false, nil
	}
	return domain.NewTrackedSet(rec.Tracked...), true, nil
}

func (r *TrackingRepository) Save(ctx context.Context, tracked domain.TrackedSet) error {
	b, err := json.Marshal(trackingRecord{Version: domain.SnapshotVersion, Tracked: tracked.Titles()})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tracking(id, schema_version, value_json, updated_at)
		VALUES(1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			value_json = excluded.value_json,
			updated_at = excluded.updated_at
	`, domain.SnapshotVersion, b, time.Now().UTC().Format(time.RFC3339))
	return err
}
