package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

// InsertAsset stores a new asset record, normally called when an upload
// session completes.
func (d *Database) InsertAsset(ctx context.Context, a *mediatypes.MediaAsset) error {
	start := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO assets
			(id, collection_id, storage_key, file_name, mime, extension,
			 size, kind, decode_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CollectionID, a.StorageKey, a.FileName, a.Mime, a.Extension,
		a.Size, string(a.Kind), string(a.DecodeStatus),
		a.CreatedAt.Unix(), a.UpdatedAt.Unix(),
	)
	recordQuery("insert_asset", start, err)
	if err != nil {
		return fmt.Errorf("insert asset %s: %w", a.ID, err)
	}
	return nil
}

// GetAsset loads one asset. Returns ErrAssetNotFound for unknown ids.
func (d *Database) GetAsset(ctx context.Context, id string) (*mediatypes.MediaAsset, error) {
	start := time.Now()

	var (
		a                    mediatypes.MediaAsset
		kind, status         string
		imageMeta, videoMeta sql.NullString
		decodeErr            sql.NullString
		created, updated     int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, collection_id, storage_key, file_name, mime, extension,
		       size, kind, decode_status, width, height,
		       image_meta, video_meta, decode_error, created_at, updated_at
		FROM assets WHERE id = ?`, id,
	).Scan(&a.ID, &a.CollectionID, &a.StorageKey, &a.FileName, &a.Mime, &a.Extension,
		&a.Size, &kind, &status, &a.Width, &a.Height,
		&imageMeta, &videoMeta, &decodeErr, &created, &updated)
	recordQuery("get_asset", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}

	a.Kind = mediatypes.MediaKind(kind)
	a.DecodeStatus = mediatypes.DecodeStatus(status)
	a.DecodeError = decodeErr.String
	a.CreatedAt = time.Unix(created, 0).UTC()
	a.UpdatedAt = time.Unix(updated, 0).UTC()

	if imageMeta.Valid && imageMeta.String != "" {
		var im mediatypes.ImageMetadata
		if err := json.Unmarshal([]byte(imageMeta.String), &im); err != nil {
			return nil, fmt.Errorf("decode image metadata for asset %s: %w", id, err)
		}
		a.Image = &im
	}
	if videoMeta.Valid && videoMeta.String != "" {
		var vm mediatypes.VideoMetadata
		if err := json.Unmarshal([]byte(videoMeta.String), &vm); err != nil {
			return nil, fmt.Errorf("decode video metadata for asset %s: %w", id, err)
		}
		a.Video = &vm
	}

	return &a, nil
}

// ListCollectionAssets returns every asset in a collection, newest first.
func (d *Database) ListCollectionAssets(ctx context.Context, collectionID string) ([]*mediatypes.MediaAsset, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, `
		SELECT id FROM assets WHERE collection_id = ? ORDER BY created_at DESC, id`,
		collectionID)
	recordQuery("list_assets", start, err)
	if err != nil {
		return nil, fmt.Errorf("list assets for collection %s: %w", collectionID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan asset id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection %s assets: %w", collectionID, err)
	}

	assets := make([]*mediatypes.MediaAsset, 0, len(ids))
	for _, id := range ids {
		a, err := d.GetAsset(ctx, id)
		if errors.Is(err, ErrAssetNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// SetAssetDecodeResult records the outcome of an ingest run: the final
// decode status, decoded dimensions, and the failure detail when every
// decoder stage was exhausted.
func (d *Database) SetAssetDecodeResult(ctx context.Context, id string, status mediatypes.DecodeStatus, width, height int, decodeErr string) error {
	start := time.Now()
	res, err := d.db.ExecContext(ctx, `
		UPDATE assets
		SET decode_status = ?, width = ?, height = ?, decode_error = NULLIF(?, ''),
		    updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		string(status), width, height, decodeErr, id)
	recordQuery("update_asset", start, err)
	if err != nil {
		return fmt.Errorf("set decode result for asset %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// SetAssetMetadata stores extracted technical metadata. Nil pointers
// clear the corresponding column.
func (d *Database) SetAssetMetadata(ctx context.Context, id string, image *mediatypes.ImageMetadata, video *mediatypes.VideoMetadata) error {
	var imageJSON, videoJSON interface{}

	if image != nil {
		b, err := json.Marshal(image)
		if err != nil {
			return fmt.Errorf("encode image metadata for asset %s: %w", id, err)
		}
		imageJSON = string(b)
	}
	if video != nil {
		b, err := json.Marshal(video)
		if err != nil {
			return fmt.Errorf("encode video metadata for asset %s: %w", id, err)
		}
		videoJSON = string(b)
	}

	start := time.Now()
	res, err := d.db.ExecContext(ctx, `
		UPDATE assets
		SET image_meta = ?, video_meta = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		imageJSON, videoJSON, id)
	recordQuery("update_asset", start, err)
	if err != nil {
		return fmt.Errorf("set metadata for asset %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// UpsertRendition records one generated rendition. Re-generating a
// class for an asset replaces the previous record, mirroring the
// overwrite-in-place storage semantics.
func (d *Database) UpsertRendition(ctx context.Context, r *mediatypes.Rendition) error {
	start := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO renditions (asset_id, class, storage_key, format, width, height, size)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_id, class)
		DO UPDATE SET storage_key = excluded.storage_key,
		              format = excluded.format,
		              width = excluded.width,
		              height = excluded.height,
		              size = excluded.size`,
		r.AssetID, r.Class, r.StorageKey, string(r.Format), r.Width, r.Height, r.Size)
	recordQuery("upsert_rendition", start, err)
	if err != nil {
		return fmt.Errorf("upsert rendition %s/%s: %w", r.AssetID, r.Class, err)
	}
	return nil
}

// ListRenditions returns all recorded renditions for an asset in catalog
// order (by class name).
func (d *Database) ListRenditions(ctx context.Context, assetID string) ([]*mediatypes.Rendition, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, `
		SELECT asset_id, class, storage_key, format, width, height, size, created_at
		FROM renditions WHERE asset_id = ? ORDER BY class`, assetID)
	recordQuery("list_renditions", start, err)
	if err != nil {
		return nil, fmt.Errorf("list renditions for asset %s: %w", assetID, err)
	}
	defer rows.Close()

	var out []*mediatypes.Rendition
	for rows.Next() {
		var (
			r       mediatypes.Rendition
			format  string
			created int64
		)
		if err := rows.Scan(&r.AssetID, &r.Class, &r.StorageKey, &format,
			&r.Width, &r.Height, &r.Size, &created); err != nil {
			return nil, fmt.Errorf("scan rendition for asset %s: %w", assetID, err)
		}
		r.Format = mediatypes.OutputFormat(format)
		r.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renditions for asset %s: %w", assetID, err)
	}
	return out, nil
}
