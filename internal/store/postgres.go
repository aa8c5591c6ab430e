package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nickbreaton/video-slug/internal/event"
)

type PostgresVideoStore struct {
	DB *pgxpool.Pool
}

var _ VideoStore = PostgresVideoStore{}

// NewPostgresVideoStore connects to databaseURL and ensures the schema
// exists.
func NewPostgresVideoStore(ctx context.Context, databaseURL string) (PostgresVideoStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return PostgresVideoStore{}, fmt.Errorf("connecting to database: %w", err)
	}
	store := PostgresVideoStore{DB: pool}
	if err := store.Init(ctx); err != nil {
		pool.Close()
		return PostgresVideoStore{}, err
	}
	return store, nil
}

func (store PostgresVideoStore) Init(ctx context.Context) error {
	for _, q := range []string{createVideosTable, createPositionsTable} {
		if _, err := store.DB.Exec(ctx, q); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

const createVideosTable = `
CREATE TABLE IF NOT EXISTS videos (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT,
	uploader    TEXT,
	duration    DOUBLE PRECISION,
	webpage_url TEXT,
	thumbnail   TEXT,
	upload_date TEXT,
	filename    TEXT NOT NULL
);`

const createPositionsTable = `
CREATE TABLE IF NOT EXISTS playback_positions (
	video_id   TEXT PRIMARY KEY REFERENCES videos(id) ON DELETE CASCADE,
	position   DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at BIGINT NOT NULL
);`

func (store PostgresVideoStore) Insert(
	ctx context.Context,
	video event.Metadata,
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("inserting video `%s`: %w", video.ID, err)
		}
	}()

	_, err = store.DB.Exec(
		ctx,
		insertVideoQuery,
		video.ID,
		video.Title,
		video.Description,
		video.Uploader,
		video.Duration,
		video.WebpageURL,
		video.Thumbnail,
		video.UploadDate,
		video.Filename,
	)
	return
}

const insertVideoQuery = `
INSERT INTO videos
	(id, title, description, uploader, duration, webpage_url, thumbnail, upload_date, filename)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

func (store PostgresVideoStore) List(
	ctx context.Context,
) (videos []event.Metadata, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("listing videos: %w", err)
		}
	}()

	rows, err := store.DB.Query(ctx, listVideosQuery)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var row event.Metadata
		if err = scanVideo(rows, &row); err != nil {
			err = fmt.Errorf("scanning into videos: %w", err)
			return
		}
		videos = append(videos, row)
	}
	err = rows.Err()
	return
}

const listVideosQuery = `
SELECT id, title, description, uploader, duration, webpage_url, thumbnail, upload_date, filename
FROM videos;`

func (store PostgresVideoStore) GetByID(
	ctx context.Context,
	id string,
) (video event.Metadata, err error) {
	row := store.DB.QueryRow(ctx, getVideoQuery, id)
	if err = scanVideo(row, &video); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
			return
		}
		err = fmt.Errorf("fetching video `%s`: %w", id, err)
	}
	return
}

const getVideoQuery = `
SELECT id, title, description, uploader, duration, webpage_url, thumbnail, upload_date, filename
FROM videos
WHERE id = $1;`

func (store PostgresVideoStore) Delete(ctx context.Context, id string) error {
	tag, err := store.DB.Exec(ctx, deleteVideoQuery, id)
	if err != nil {
		return fmt.Errorf("deleting video `%s`: %w", id, err)
	}
	// playback_positions rows go with the video via ON DELETE CASCADE
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const deleteVideoQuery = `DELETE FROM videos WHERE id = $1;`

func (store PostgresVideoStore) SavePlaybackPosition(
	ctx context.Context,
	videoID string,
	pos PlaybackPosition,
) error {
	_, err := store.DB.Exec(ctx, upsertPositionQuery, videoID, pos.Position, pos.UpdatedAt)
	if err != nil {
		// 23503: the position's foreign key points at no video row.
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("saving playback position for `%s`: %w", videoID, err)
	}
	return nil
}

const upsertPositionQuery = `
INSERT INTO playback_positions (video_id, position, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (video_id) DO UPDATE SET
	position = excluded.position,
	updated_at = excluded.updated_at;`

func (store PostgresVideoStore) PlaybackPosition(
	ctx context.Context,
	videoID string,
) (pos PlaybackPosition, err error) {
	if err = store.DB.QueryRow(
		ctx,
		getPositionQuery,
		videoID,
	).Scan(&pos.Position, &pos.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
			return
		}
		err = fmt.Errorf("fetching playback position for `%s`: %w", videoID, err)
	}
	return
}

const getPositionQuery = `
SELECT position, updated_at FROM playback_positions WHERE video_id = $1;`

func (store PostgresVideoStore) Close() {
	store.DB.Close()
}

func scanVideo(row pgx.Row, video *event.Metadata) error {
	return row.Scan(
		&video.ID,
		&video.Title,
		&video.Description,
		&video.Uploader,
		&video.Duration,
		&video.WebpageURL,
		&video.Thumbnail,
		&video.UploadDate,
		&video.Filename,
	)
}
