package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindStandard     AccountKind = "standard"
	KindReimbursable AccountKind = "reimbursable"
)

// Reserved category names with special aggregation meaning.
const (
	CategoryTransfer = "transfer"
	CategoryInit     = "init"
)

const (
	ClassRegular CategoryClass = iota
	ClassTransfer
	ClassInit
)

type (
	AccountKind string

	// CategoryClass tells the aggregator how a category contributes to sums.
	CategoryClass int

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Account struct {
		ID    int64       `json:"id"`
		Name  string      `json:"name"`
		Color *string     `json:"color,omitempty"`
		Kind  AccountKind `json:"kind"`
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID         int64   `json:"id"`
		AccountID  int64   `json:"account_id"`
		Date       Date    `json:"date"`
		CategoryID *int64  `json:"category_id,omitempty"`
		Note       *string `json:"note,omitempty"`
		Amount     Money   `json:"amount_cents"`
	}

	// TransactionRow is a Transaction denormalized for display.
	TransactionRow struct {
		Transaction
		AccountName  string      `json:"account_name"`
		AccountColor *string     `json:"account_color,omitempty"`
		AccountKind  AccountKind `json:"account_kind"`
		CategoryName *string     `json:"category_name,omitempty"`
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category name")
	ErrInvalidKind     = errors.New("invalid account kind")
	ErrInvalidAccount  = errors.New("invalid account id")
	ErrNoteTooLong     = errors.New("note too long (max 500 characters)")
	ErrAccountInUse    = errors.New("account has transactions")
	ErrCategoryMissing = errors.New("category not found")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ISO returns the date as YYYY-MM-DD, the storage representation.
func (d Date) ISO() string {
	return d.Format(isoLayout)
}

// Compare orders two dates by calendar day.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func (k AccountKind) IsValid() bool {
	switch k {
	case KindStandard, KindReimbursable:
		return true
	default:
		return false
	}
}

// ParseAccountKind maps free text to an AccountKind. Empty means standard.
func ParseAccountKind(s string) (AccountKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(KindStandard):
		return KindStandard, nil
	case string(KindReimbursable):
		return KindReimbursable, nil
	default:
		return "", ErrInvalidKind
	}
}

// ClassifyCategory returns the aggregation class for a category name.
// Matching is case-insensitive; a missing category is regular.
func ClassifyCategory(name string) CategoryClass {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CategoryTransfer:
		return ClassTransfer
	case CategoryInit:
		return ClassInit
	default:
		return ClassRegular
	}
}

// CategoryClass returns the aggregation class of the row's category.
func (r TransactionRow) CategoryClass() CategoryClass {
	if r.CategoryName == nil {
		return ClassRegular
	}
	return ClassifyCategory(*r.CategoryName)
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Kind.IsValid() {
		return ErrInvalidKind
	}
	return nil
}

func (a Account) IsReimbursable() bool {
	return a.Kind == KindReimbursable
}

func (t Transaction) Validate() error {
	if t.AccountID <= 0 {
		return ErrInvalidAccount
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Note != nil && len(*t.Note) > 500 {
		return ErrNoteTooLong
	}
	return nil
}

// NormalizeCategoryName trims a category name and rejects empty input.
func NormalizeCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyCategory
	}
	return name, nil
}
