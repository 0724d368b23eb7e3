package store

import (
	"context"
	"time"

	"github.com/roach88/vault/internal/vaulterr"
)

// Favorite marks one item of a module.
type Favorite struct {
	ID        int64     `json:"id"`
	Module    string    `json:"module"`
	ItemID    int64     `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}

type favoriteRow struct {
	ID        int64  `db:"id"`
	Module    string `db:"module"`
	ItemID    int64  `db:"item_id"`
	CreatedAt int64  `db:"created_at"`
}

func validateFavorite(op, module string, itemID int64) error {
	switch module {
	case ModuleJournal, ModuleFinance, ModuleDocuments:
	default:
		return vaulterr.Validation(op, "module %q must be journal, finance or documents", module)
	}
	if itemID <= 0 {
		return vaulterr.Validation(op, "item id must be positive, got %d", itemID)
	}
	return nil
}

// AddFavorite marks an item. Marking an already marked item is a no-op.
// The item itself is not required to exist.
func (s *Store) AddFavorite(ctx context.Context, module string, itemID int64) error {
	const op = "add favorite"
	if err := validateFavorite(op, module, itemID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (module, item_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(module, item_id) DO NOTHING
	`, module, itemID, toUnix(s.now()))
	if err != nil {
		return vaulterr.Storage(op, err)
	}
	return nil
}

// RemoveFavorite unmarks an item and reports whether a mark existed.
func (s *Store) RemoveFavorite(ctx context.Context, module string, itemID int64) (bool, error) {
	const op = "remove favorite"
	if err := validateFavorite(op, module, itemID); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE module = ? AND item_id = ?`, module, itemID)
	if err != nil {
		return false, vaulterr.Storage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, vaulterr.Storage(op, err)
	}
	return n > 0, nil
}

// GetFavorites lists marks newest first. An empty module lists all modules.
func (s *Store) GetFavorites(ctx context.Context, module string) ([]Favorite, error) {
	var f rangeFilter
	if module != "" {
		f.equals("module", module)
	}
	var rows []favoriteRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, module, item_id, created_at FROM favorites`+f.where()+` ORDER BY created_at DESC, id DESC`,
		f.args...)
	if err != nil {
		return nil, vaulterr.Storage("get favorites", err)
	}
	favs := make([]Favorite, 0, len(rows))
	for _, r := range rows {
		favs = append(favs, Favorite{
			ID:        r.ID,
			Module:    r.Module,
			ItemID:    r.ItemID,
			CreatedAt: fromUnix(r.CreatedAt),
		})
	}
	return favs, nil
}

// IsFavorite reports whether the item is marked.
func (s *Store) IsFavorite(ctx context.Context, module string, itemID int64) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM favorites WHERE module = ? AND item_id = ?`, module, itemID)
	if err != nil {
		return false, vaulterr.Storage("is favorite", err)
	}
	return n > 0, nil
}
