package repositoryimpl

import (
	"bytes"
	"context"

	"github.com/kazz187/sprintly/internal/preference"
	"github.com/kazz187/sprintly/pkg/cerr"
	"github.com/kazz187/sprintly/pkg/storage"
)

// StorageRepository keeps the theme as the raw string "light" or "dark".
type StorageRepository struct {
	storage storage.Storage
}

func NewStorageRepository(s storage.Storage) *StorageRepository {
	return &StorageRepository{storage: s}
}

func (r *StorageRepository) GetTheme(ctx context.Context) (preference.Theme, error) {
	data, err := r.storage.Read(ctx, preference.ThemeKey)
	if err != nil {
		return "", cerr.WrapStorageReadError("theme", err)
	}
	t := preference.Theme(bytes.TrimSpace(data))
	if !t.Valid() {
		return "", cerr.NewError(cerr.DataLoss, "theme is malformed", nil)
	}
	return t, nil
}

func (r *StorageRepository) SetTheme(ctx context.Context, t preference.Theme) error {
	if err := r.storage.Write(ctx, preference.ThemeKey, []byte(t)); err != nil {
		return cerr.WrapStorageWriteError("theme", err)
	}
	return nil
}
