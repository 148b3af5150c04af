package preference

import "context"

type Repository interface {
	// GetTheme returns cerr.NotFound when no theme is stored.
	GetTheme(ctx context.Context) (Theme, error)
	SetTheme(ctx context.Context, t Theme) error
}
