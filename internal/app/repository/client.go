package repository

import (
	"context"
	"fmt"

	"portal/internal/app/ds"
)

// ClientExists reports whether a live client with id exists.
func (r *Repository) ClientExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ds.Client{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check client %d: %w", id, err)
	}
	return count > 0, nil
}

// ClientsByID loads the clients referenced by ids, keyed by id.
func (r *Repository) ClientsByID(ctx context.Context, ids []uint) (map[uint]ds.Client, error) {
	out := make(map[uint]ds.Client, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var clients []ds.Client
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	for _, c := range clients {
		out[c.ID] = c
	}
	return out, nil
}

func (r *Repository) CreateClient(ctx context.Context, client *ds.Client) error {
	if err := r.db.WithContext(ctx).Create(client).Error; err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}
