package repository

import (
	"context"
	"errors"
	"time"

	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/db"
)

type userRepo struct {
	conn db.DBTX
}

func (r *userRepo) Upsert(ctx context.Context, profile *whoop.UserProfile, body *whoop.BodyMeasurement) error {
	const query = `
INSERT INTO users (id, email, first_name, last_name, height_meter, weight_kilogram, max_heart_rate, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	email = excluded.email,
	first_name = excluded.first_name,
	last_name = excluded.last_name,
	height_meter = COALESCE(excluded.height_meter, users.height_meter),
	weight_kilogram = COALESCE(excluded.weight_kilogram, users.weight_kilogram),
	max_heart_rate = COALESCE(excluded.max_heart_rate, users.max_heart_rate),
	updated_at = excluded.updated_at`

	var (
		height, weight *float64
		maxHR          *int
	)
	if body != nil {
		height, weight, maxHR = &body.HeightMeter, &body.WeightKilogram, &body.MaxHeartRate
	}

	_, err := r.conn.Exec(ctx, query,
		profile.UserID,
		profile.Email,
		profile.FirstName,
		profile.LastName,
		height,
		weight,
		maxHR,
		time.Now().UTC(),
	)
	if err != nil {
		return &PersistenceError{Kind: KindUser, ID: formatID(profile.UserID), Err: err}
	}
	return nil
}

func (r *userRepo) Get(ctx context.Context, id int64) (*User, error) {
	const query = `
SELECT id, email, first_name, last_name, height_meter, weight_kilogram, max_heart_rate, updated_at
FROM users WHERE id = $1`

	var u User
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.HeightMeter, &u.WeightKilogram, &u.MaxHeartRate, &u.UpdatedAt,
	)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
