package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
)

const focusColumns = `id, profile_id, text, type, task_size, category, priority, sentiment, state, due_date, in_index, created_at, updated_at`

// FocusRepository handles focus item database operations
type FocusRepository struct {
	db *DB
}

// NewFocusRepository creates a new focus repository
func NewFocusRepository(db *DB) *FocusRepository {
	return &FocusRepository{db: db}
}

// SearchFilter describes the relational predicates for a focus query.
// DueOn is exclusive with the DueAfter/DueBefore range: when DueOn is set
// the range bounds are ignored. An empty States slice means the default
// visibility (backlog and active). Deleted items are never returned.
type SearchFilter struct {
	ProfileID uuid.UUID
	IDs       []uuid.UUID
	DueOn     *time.Time
	DueAfter  *time.Time
	DueBefore *time.Time
	States    []models.FocusState
	Limit     int
}

// CreateBatch inserts a batch of focus items in a single transaction.
// Either every item is persisted or none is.
func (r *FocusRepository) CreateBatch(ctx context.Context, items []*models.FocusItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("create focus items", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO focus_items (` + focusColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for _, item := range items {
		var dueDate sql.NullTime
		if item.DueDate != nil {
			dueDate = sql.NullTime{Time: *item.DueDate, Valid: true}
		}

		_, err := tx.ExecContext(ctx, query,
			item.ID,
			item.ProfileID,
			item.Text,
			item.Type,
			item.TaskSize,
			item.Category,
			item.Priority,
			item.Sentiment,
			item.State,
			dueDate,
			item.InIndex,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return storageErr("create focus items", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("create focus items", err)
	}

	return nil
}

// GetByID retrieves a focus item by ID
func (r *FocusRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FocusItem, error) {
	query := `SELECT ` + focusColumns + ` FROM focus_items WHERE id = $1`

	item, err := scanFocus(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storageErr("get focus item", fmt.Errorf("focus item not found: %s", id))
	}
	if err != nil {
		return nil, storageErr("get focus item", err)
	}

	return item, nil
}

// Search retrieves the focus items matching the filter, ordered by due date
// ascending with null due dates last.
func (r *FocusRepository) Search(ctx context.Context, filter SearchFilter) ([]*models.FocusItem, error) {
	query := `SELECT ` + focusColumns + ` FROM focus_items WHERE profile_id = $1 AND state != $2`
	args := []any{filter.ProfileID, models.FocusStateDeleted}
	argIndex := 3

	if len(filter.IDs) > 0 {
		ids := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			ids[i] = id.String()
		}
		query += fmt.Sprintf(" AND id = ANY($%d)", argIndex)
		args = append(args, pq.Array(ids))
		argIndex++
	}

	if filter.DueOn != nil {
		query += fmt.Sprintf(" AND due_date = $%d", argIndex)
		args = append(args, *filter.DueOn)
		argIndex++
	} else {
		if filter.DueAfter != nil {
			query += fmt.Sprintf(" AND due_date >= $%d", argIndex)
			args = append(args, *filter.DueAfter)
			argIndex++
		}
		if filter.DueBefore != nil {
			query += fmt.Sprintf(" AND due_date <= $%d", argIndex)
			args = append(args, *filter.DueBefore)
			argIndex++
		}
	}

	states := filter.States
	if len(states) == 0 {
		states = []models.FocusState{models.FocusStateBacklog, models.FocusStateActive}
	}
	stateStrs := make([]string, len(states))
	for i, s := range states {
		stateStrs[i] = string(s)
	}
	query += fmt.Sprintf(" AND state = ANY($%d)", argIndex)
	args = append(args, pq.Array(stateStrs))
	argIndex++

	query += " ORDER BY due_date ASC NULLS LAST, created_at ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("search focus items", err)
	}
	defer rows.Close()

	return collectFocus(rows)
}

// UpdateState moves an item through its lifecycle, rejecting illegal
// transitions before touching the row.
func (r *FocusRepository) UpdateState(ctx context.Context, id uuid.UUID, next models.FocusState) error {
	item, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !item.State.CanTransitionTo(next) {
		return fmt.Errorf("illegal state transition %s -> %s for item %s", item.State, next, id)
	}

	query := `UPDATE focus_items SET state = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, next, time.Now()); err != nil {
		return storageErr("update focus state", err)
	}

	return nil
}

// UpdateText replaces an item's description. The index entry derived from
// the old text is now stale, so in_index is always reset; reconciliation
// restores it.
func (r *FocusRepository) UpdateText(ctx context.Context, id uuid.UUID, text string) error {
	query := `UPDATE focus_items SET text = $2, in_index = FALSE, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, text, time.Now())
	if err != nil {
		return storageErr("update focus text", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("update focus text", err)
	}
	if affected == 0 {
		return storageErr("update focus text", fmt.Errorf("focus item not found: %s", id))
	}

	return nil
}

// Delete removes a focus item row
func (r *FocusRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM focus_items WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete focus item", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("delete focus item", err)
	}
	if affected == 0 {
		return storageErr("delete focus item", fmt.Errorf("focus item not found: %s", id))
	}

	return nil
}

// ListUnindexed returns the items awaiting a semantic-index mirror
func (r *FocusRepository) ListUnindexed(ctx context.Context, profileID uuid.UUID) ([]*models.FocusItem, error) {
	query := `SELECT ` + focusColumns + ` FROM focus_items WHERE profile_id = $1 AND in_index = FALSE AND state != $2 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, profileID, models.FocusStateDeleted)
	if err != nil {
		return nil, storageErr("list unindexed focus items", err)
	}
	defer rows.Close()

	return collectFocus(rows)
}

// MarkIndexed flips in_index for the given items. The WHERE clause only
// moves rows from false to true, which keeps concurrent reconciliation
// passes idempotent.
func (r *FocusRepository) MarkIndexed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = id.String()
	}

	query := `UPDATE focus_items SET in_index = TRUE, updated_at = $2 WHERE id = ANY($1) AND in_index = FALSE`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(idStrs), time.Now()); err != nil {
		return storageErr("mark focus items indexed", err)
	}

	return nil
}

// ListOpenTexts returns the descriptions of a profile's open items, used as
// the duplicate-exclusion list for transcript extraction.
func (r *FocusRepository) ListOpenTexts(ctx context.Context, profileID uuid.UUID) ([]string, error) {
	query := `SELECT text FROM focus_items WHERE profile_id = $1 AND state = ANY($2) ORDER BY created_at ASC`
	states := pq.Array([]string{string(models.FocusStateBacklog), string(models.FocusStateActive)})

	rows, err := r.db.QueryContext(ctx, query, profileID, states)
	if err != nil {
		return nil, storageErr("list open focus texts", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, storageErr("list open focus texts", err)
		}
		texts = append(texts, text)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("list open focus texts", err)
	}

	return texts, nil
}

// ListProfilesWithUnindexed returns the profiles that have a reconciliation
// backlog, used by the scheduler to enqueue reconcile jobs.
func (r *FocusRepository) ListProfilesWithUnindexed(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT profile_id FROM focus_items WHERE in_index = FALSE AND state != $1`

	rows, err := r.db.QueryContext(ctx, query, models.FocusStateDeleted)
	if err != nil {
		return nil, storageErr("list profiles with unindexed items", err)
	}
	defer rows.Close()

	var profiles []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("list profiles with unindexed items", err)
		}
		profiles = append(profiles, id)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("list profiles with unindexed items", err)
	}

	return profiles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFocus(row rowScanner) (*models.FocusItem, error) {
	item := &models.FocusItem{}
	var dueDate sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.ProfileID,
		&item.Text,
		&item.Type,
		&item.TaskSize,
		&item.Category,
		&item.Priority,
		&item.Sentiment,
		&item.State,
		&dueDate,
		&item.InIndex,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		item.DueDate = &dueDate.Time
	}

	return item, nil
}

func collectFocus(rows *sql.Rows) ([]*models.FocusItem, error) {
	var items []*models.FocusItem
	for rows.Next() {
		item, err := scanFocus(rows)
		if err != nil {
			return nil, storageErr("scan focus item", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate focus items", err)
	}

	return items, nil
}
