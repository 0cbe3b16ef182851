/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/lookupd/pkg/models"
)

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS lookup_identities (
		identity_key TEXT PRIMARY KEY,
		uri          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lookup_records (
		uri     TEXT PRIMARY KEY,
		state   TEXT NOT NULL,
		expires TIMESTAMPTZ,
		doc     JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS lookup_records_expires_idx ON lookup_records (expires)`,
}

// PostgresStore persists records in a JSONB table. Identity reservations
// live in their own table so releasing a reservation can never touch a
// record row; the primary key on lookup_identities provides the atomic
// create-if-absent the registry relies on.
type PostgresStore struct {
	pool *pgxpool.Pool
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for _, stmt := range pgSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()

			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, uri string) (*models.Record, error) {
	var doc []byte

	err := s.pool.QueryRow(ctx, `SELECT doc FROM lookup_records WHERE uri = $1`, uri).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", uri, err)
	}

	return decodeRecord(doc)
}

func (s *PostgresStore) FindOne(ctx context.Context, identity *models.Query) (*models.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if identity.Matches(rec) {
			return rec, nil
		}
	}

	return nil, nil
}

func (s *PostgresStore) Insert(ctx context.Context, identityKey string, rec *models.Record) error {
	doc, expires, err := encodeRow(rec)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin insert for %s: %w", rec.URI(), err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO lookup_identities (identity_key, uri)
		 VALUES ($1, $2)
		 ON CONFLICT (identity_key) DO NOTHING`,
		identityKey, rec.URI())
	if err != nil {
		return fmt.Errorf("failed to reserve identity %s: %w", identityKey, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrIdentityTaken
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO lookup_records (uri, state, expires, doc) VALUES ($1, $2, $3, $4)`,
		rec.URI(), rec.State(), expires, doc)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.URI(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit insert for %s: %w", rec.URI(), err)
	}

	return nil
}

func (s *PostgresStore) Update(ctx context.Context, uri string, rec *models.Record) error {
	doc, expires, err := encodeRow(rec)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE lookup_records SET state = $2, expires = $3, doc = $4 WHERE uri = $1`,
		uri, rec.State(), expires, doc)
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", uri, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNoSuchRecord
	}

	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, uri string) (*models.Record, error) {
	var doc []byte

	err := s.pool.QueryRow(ctx,
		`DELETE FROM lookup_records WHERE uri = $1 RETURNING doc`, uri).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to delete record %s: %w", uri, err)
	}

	return decodeRecord(doc)
}

func (s *PostgresStore) RemoveIfExpired(ctx context.Context, uri string, asOf time.Time) (*models.Record, error) {
	var doc []byte

	// The expiry predicate runs inside the delete itself, so a concurrent
	// renewal that already pushed expires forward keeps the row.
	err := s.pool.QueryRow(ctx,
		`DELETE FROM lookup_records
		 WHERE uri = $1 AND expires < $2 AND state <> $3
		 RETURNING doc`,
		uri, asOf, models.StateDeleted).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to delete expired record %s: %w", uri, err)
	}

	return decodeRecord(doc)
}

func (s *PostgresStore) ReserveIdentity(ctx context.Context, identityKey, uri string) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO lookup_identities (identity_key, uri)
		 VALUES ($1, $2)
		 ON CONFLICT (identity_key) DO NOTHING`,
		identityKey, uri)
	if err != nil {
		return fmt.Errorf("failed to reserve identity %s: %w", identityKey, err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	var holder string

	err = s.pool.QueryRow(ctx,
		`SELECT uri FROM lookup_identities WHERE identity_key = $1`, identityKey).Scan(&holder)
	if err == nil && holder == uri {
		return nil
	}

	return ErrIdentityTaken
}

func (s *PostgresStore) ReleaseIdentity(ctx context.Context, identityKey, uri string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM lookup_identities WHERE identity_key = $1 AND ($2 = '' OR uri = $2)`,
		identityKey, uri)
	if err != nil {
		return fmt.Errorf("failed to release identity %s: %w", identityKey, err)
	}

	return nil
}

func (s *PostgresStore) RangeScan(ctx context.Context, start, end time.Time) ([]*models.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM lookup_records WHERE expires >= $1 AND expires <= $2 ORDER BY uri`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to range scan records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM lookup_records ORDER BY uri`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()

	return nil
}

func encodeRow(rec *models.Record) (doc []byte, expires *time.Time, err error) {
	doc, err = json.Marshal(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode record %s: %w", rec.URI(), err)
	}

	if t, ok := rec.Expires(); ok {
		expires = &t
	}

	return doc, expires, nil
}

func collectRecords(rows pgx.Rows) ([]*models.Record, error) {
	var out []*models.Record

	for rows.Next() {
		var doc []byte

		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}

		rec, err := decodeRecord(doc)
		if err != nil {
			return nil, err
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read record rows: %w", err)
	}

	return out, nil
}

var _ Service = (*PostgresStore)(nil)
