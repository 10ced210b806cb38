package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

// ItemParams holds the editable fields of a shopping item.
type ItemParams struct {
	Name     string
	Quantity string
	Unit     string
	Notes    string
	Category string
}

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

// --- List methods ---

func scanList(scanner interface{ Scan(...any) error }) (*model.ShoppingList, error) {
	var l model.ShoppingList
	err := scanner.Scan(&l.ID, &l.Name, &l.SortOrder, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const listCols = `id, name, sort_order, created_at`

func (s *ShoppingStore) CreateList(name string) (*model.ShoppingList, error) {
	var maxOrder int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(sort_order), -1) FROM shopping_lists`).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(`INSERT INTO shopping_lists (name, sort_order) VALUES (?, ?)`, name, maxOrder+1)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetList(id)
}

func (s *ShoppingStore) GetList(id int64) (*model.ShoppingList, error) {
	row := s.db.QueryRow(`SELECT `+listCols+` FROM shopping_lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

func (s *ShoppingStore) ListLists() ([]model.ShoppingList, error) {
	rows, err := s.db.Query(`SELECT ` + listCols + ` FROM shopping_lists ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var lists []model.ShoppingList
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

// DeleteList removes a list and, by cascade, its items.
func (s *ShoppingStore) DeleteList(id int64) error {
	_, err := s.db.Exec(`DELETE FROM shopping_lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

// --- Item methods ---

func scanItem(scanner interface{ Scan(...any) error }) (*model.ShoppingItem, error) {
	var item model.ShoppingItem
	var checkedBy, addedBy sql.NullInt64
	var checkedAt sql.NullTime
	var checked int

	err := scanner.Scan(
		&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.Unit,
		&item.Notes, &item.Category, &checked, &checkedBy, &checkedAt,
		&addedBy, &item.SortOrder, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Checked = checked != 0
	if checkedBy.Valid {
		item.CheckedBy = &checkedBy.Int64
	}
	if checkedAt.Valid {
		item.CheckedAt = &checkedAt.Time
	}
	if addedBy.Valid {
		item.AddedBy = &addedBy.Int64
	}
	return &item, nil
}

const itemCols = `id, list_id, name, quantity, unit, notes, category, checked, checked_by, checked_at, added_by, sort_order, created_at`

func (s *ShoppingStore) GetItem(id int64) (*model.ShoppingItem, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM shopping_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *ShoppingStore) CreateItem(listID int64, p ItemParams, addedBy *int64) (*model.ShoppingItem, error) {
	var maxOrder int
	err := s.db.QueryRow(
		`SELECT COALESCE(MAX(sort_order), -1) FROM shopping_items WHERE list_id = ?`, listID,
	).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO shopping_items (list_id, name, quantity, unit, notes, category, added_by, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		listID, p.Name, p.Quantity, p.Unit, p.Notes, p.Category, nullInt64(addedBy), maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetItem(id)
}

// ListItems returns a list's items with unchecked items first, grouped by category.
func (s *ShoppingStore) ListItems(listID int64) ([]model.ShoppingItem, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM shopping_items WHERE list_id = ?
		 ORDER BY checked ASC, category ASC, sort_order ASC, id ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ShoppingStore) UpdateItem(id int64, p ItemParams) (*model.ShoppingItem, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_items SET name = ?, quantity = ?, unit = ?, notes = ?, category = ? WHERE id = ?`,
		p.Name, p.Quantity, p.Unit, p.Notes, p.Category, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetItem(id)
}

func (s *ShoppingStore) DeleteItem(id int64) error {
	_, err := s.db.Exec(`DELETE FROM shopping_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// ToggleChecked flips an item's checked state, recording who checked it.
func (s *ShoppingStore) ToggleChecked(id int64, checkedBy *int64) (*model.ShoppingItem, error) {
	item, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	if item.Checked {
		_, err = s.db.Exec(
			`UPDATE shopping_items SET checked = 0, checked_by = NULL, checked_at = NULL WHERE id = ?`,
			id,
		)
	} else {
		_, err = s.db.Exec(
			`UPDATE shopping_items SET checked = 1, checked_by = ?, checked_at = ? WHERE id = ?`,
			nullInt64(checkedBy), time.Now().UTC(), id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("toggle checked: %w", err)
	}
	return s.GetItem(id)
}

// ClearChecked deletes the checked items of a list and returns how many were removed.
func (s *ShoppingStore) ClearChecked(listID int64) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM shopping_items WHERE list_id = ? AND checked = 1`, listID)
	if err != nil {
		return 0, fmt.Errorf("clear checked: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
