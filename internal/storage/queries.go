package storage

import (
	"context"
	"database/sql"
	"fmt"

	"conti/internal/core"
	"conti/internal/ledger"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const findAccounts = `SELECT id, name, color, kind FROM accounts ORDER BY id`

func (q *Queries) FindAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, findAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Account{}
	for rows.Next() {
		var (
			a     core.Account
			color sql.NullString
			kind  string
		)
		if err := rows.Scan(&a.ID, &a.Name, &color, &kind); err != nil {
			return nil, err
		}
		a.Color = nullString(color)
		a.Kind = core.AccountKind(kind)
		items = append(items, a)
	}
	return items, rows.Err()
}

const getAccountID = `SELECT id FROM accounts WHERE id = ?`

func (q *Queries) AccountExists(ctx context.Context, id int64) (bool, error) {
	var got int64
	err := q.db.QueryRowContext(ctx, getAccountID, id).Scan(&got)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

const insertAccount = `INSERT INTO accounts (name, color, kind) VALUES (?, ?, ?)`

func (q *Queries) InsertAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertAccount, a.Name, a.Color, string(a.Kind))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const countAccountTransactions = `SELECT COUNT(*) FROM transactions WHERE account_id = ?`

func (q *Queries) CountAccountTransactions(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAccountTransactions, id).Scan(&n)
	return n, err
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Category names are unique by their folded key, which folds beyond ASCII
// unlike NOCASE.
const getCategoryByName = `SELECT id FROM categories WHERE name_key = ` + foldFunc + `(?)`

func (q *Queries) CategoryIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getCategoryByName, name).Scan(&id)
	return id, err
}

const getCategoryID = `SELECT id FROM categories WHERE id = ?`

func (q *Queries) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var got int64
	err := q.db.QueryRowContext(ctx, getCategoryID, id).Scan(&got)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

const insertCategory = `INSERT INTO categories (name, name_key) VALUES (?, ` + foldFunc + `(?)) ON CONFLICT DO NOTHING`

func (q *Queries) InsertCategory(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, insertCategory, name, name)
	return err
}

const listCategories = `SELECT id, name FROM categories ORDER BY name COLLATE NOCASE`

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const insertTransaction = `INSERT INTO transactions (account_id, date, category_id, note, amount_cents) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertTransaction, t.AccountID, t.Date.ISO(), t.CategoryID, t.Note, t.Amount.Cents)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const rowSelect = `SELECT t.id, t.account_id, t.date, t.category_id, t.note, t.amount_cents,
       a.name, a.color, a.kind, c.name
FROM transactions t
JOIN accounts a ON a.id = t.account_id
LEFT JOIN categories c ON c.id = t.category_id`

const rowFrom = `FROM transactions t
JOIN accounts a ON a.id = t.account_id
LEFT JOIN categories c ON c.id = t.category_id`

func (q *Queries) FindTransactions(ctx context.Context, p ledger.Predicate, o ledger.Order, limit, offset int) ([]core.TransactionRow, error) {
	where, args := whereClause(p)
	query := rowSelect + where + orderClause(o) + "\nLIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.TransactionRow{}
	for rows.Next() {
		var (
			r          core.TransactionRow
			date, kind string
			categoryID sql.NullInt64
			note       sql.NullString
			color      sql.NullString
			category   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.AccountID, &date, &categoryID, &note, &r.Amount.Cents,
			&r.AccountName, &color, &kind, &category); err != nil {
			return nil, err
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: date %q: %w", r.ID, date, err)
		}
		r.Date = d
		if categoryID.Valid {
			id := categoryID.Int64
			r.CategoryID = &id
		}
		r.Note = nullString(note)
		r.AccountColor = nullString(color)
		r.AccountKind = core.AccountKind(kind)
		r.CategoryName = nullString(category)
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) CountTransactions(ctx context.Context, p ledger.Predicate) (int, error) {
	where, args := whereClause(p)
	var n int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*)\n"+rowFrom+where, args...).Scan(&n)
	return n, err
}

const sumSelect = `SELECT a.kind, ` + foldFunc + `(COALESCE(c.name, '')) AS category,
       COALESCE(SUM(CASE WHEN t.amount_cents > 0 THEN t.amount_cents ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN t.amount_cents < 0 THEN t.amount_cents ELSE 0 END), 0)
`

func (q *Queries) SumTransactions(ctx context.Context, p ledger.Predicate) ([]ledger.SumBucket, error) {
	where, args := whereClause(p)
	query := sumSelect + rowFrom + where + "\nGROUP BY a.kind, category"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.SumBucket
	for rows.Next() {
		var (
			b    ledger.SumBucket
			kind string
		)
		if err := rows.Scan(&kind, &b.Category, &b.Positive.Cents, &b.Negative.Cents); err != nil {
			return nil, err
		}
		b.Kind = core.AccountKind(kind)
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
