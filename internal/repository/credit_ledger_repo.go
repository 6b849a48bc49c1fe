package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/merit-go-api/internal/models"
)

// ErrDuplicateEntry indicates the ledger already holds an entry for the same
// (submission, kind) pair. Surfaced from the unique index, not an in-process check.
var ErrDuplicateEntry = errors.New("ledger entry already exists for submission")

// CreditLedgerRepository persists append-only credit ledger entries. There are no
// update or delete operations; corrections go through reversal rows.
type CreditLedgerRepository interface {
	Create(ctx context.Context, entry *models.CreditLedgerEntry) error
	GetByID(ctx context.Context, id uint) (models.CreditLedgerEntry, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.CreditLedgerEntry, error)
	TotalFor(ctx context.Context, studentID uint) (float64, error)
}

type creditLedgerRepository struct {
	db *gorm.DB
}

// NewCreditLedgerRepository constructs the ledger repository.
func NewCreditLedgerRepository(db *gorm.DB) CreditLedgerRepository {
	return &creditLedgerRepository{db: db}
}

func (r *creditLedgerRepository) Create(ctx context.Context, entry *models.CreditLedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEntry
		}
		return err
	}

	return nil
}

func (r *creditLedgerRepository) GetByID(ctx context.Context, id uint) (models.CreditLedgerEntry, error) {
	var entry models.CreditLedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return models.CreditLedgerEntry{}, err
	}

	return entry, nil
}

func (r *creditLedgerRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.CreditLedgerEntry, error) {
	var entries []models.CreditLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("awarded_at ASC").Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *creditLedgerRepository) TotalFor(ctx context.Context, studentID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.CreditLedgerEntry{}).
		Where("student_id = ?", studentID).
		Select("COALESCE(SUM(credits), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	return total, nil
}
