package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Manifest lists the Parquet parts that make up the documents snapshot.
type Manifest struct {
	Table     string         `json:"table"`
	UpdatedAt time.Time      `json:"updated_at"`
	Parts     []ManifestPart `json:"parts"`
}

type ManifestPart struct {
	Path      string    `json:"path"`
	RunID     string    `json:"run_id"`
	Rows      int64     `json:"rows"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadManifest returns an empty manifest when none has been written yet.
func ReadManifest(ctx context.Context, store ObjectStore) (Manifest, error) {
	data, err := GetBytes(ctx, store, ManifestPath)
	if errors.Is(err, ErrObjectNotFound) {
		return Manifest{Table: "documents"}, nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if manifest.Table == "" {
		manifest.Table = "documents"
	}
	return manifest, nil
}

func WriteManifest(ctx context.Context, store ObjectStore, manifest Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := PutBytes(ctx, store, ManifestPath, data, "application/json"); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ManifestReachable reports whether the snapshot manifest can be looked up.
// A manifest that was never written counts as reachable.
func ManifestReachable(ctx context.Context, store ObjectStore) error {
	if _, err := store.Stat(ctx, ManifestPath); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("stat manifest: %w", err)
	}
	return nil
}
