package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/citadelle/account-security-service/internal/domain"
)

type policyRepository struct {
	db *gorm.DB
}

func (r *policyRepository) FindActive(ctx context.Context, tenantID *uuid.UUID) (domain.SecurityPolicy, error) {
	query := r.db.WithContext(ctx).Where("is_active = TRUE")
	if tenantID == nil {
		query = query.Where("tenant_id IS NULL")
	} else {
		query = query.Where("tenant_id = ?", *tenantID)
	}

	var rec securityPolicyModel
	if err := query.Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SecurityPolicy{}, domain.ErrPolicyNotFound
		}
		return domain.SecurityPolicy{}, err
	}
	return toDomainPolicy(rec), nil
}

// Upsert deactivates the current active row for the same tenant value and
// inserts the replacement in one transaction. Old rows stay behind as the
// policy change history.
func (r *policyRepository) Upsert(ctx context.Context, policy domain.SecurityPolicy) (domain.SecurityPolicy, error) {
	rec := toPolicyModel(policy)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deactivate := tx.Model(&securityPolicyModel{}).Where("is_active = TRUE")
		if policy.TenantID == nil {
			deactivate = deactivate.Where("tenant_id IS NULL")
		} else {
			deactivate = deactivate.Where("tenant_id = ?", *policy.TenantID)
		}
		if err := deactivate.Updates(map[string]any{
			"is_active":  false,
			"updated_at": rec.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return domain.SecurityPolicy{}, err
	}
	return toDomainPolicy(rec), nil
}

func (r *policyRepository) Deactivate(ctx context.Context, policyID uuid.UUID, at time.Time) (domain.SecurityPolicy, error) {
	var rec securityPolicyModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("policy_id = ?", policyID).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPolicyNotFound
			}
			return err
		}
		if !rec.IsActive {
			return nil
		}
		rec.IsActive = false
		rec.UpdatedAt = at
		return tx.Model(&securityPolicyModel{}).
			Where("policy_id = ?", policyID).
			Updates(map[string]any{
				"is_active":  false,
				"updated_at": at,
			}).Error
	})
	if err != nil {
		return domain.SecurityPolicy{}, err
	}
	return toDomainPolicy(rec), nil
}

func (r *policyRepository) ListByTenant(ctx context.Context, tenantID *uuid.UUID) ([]domain.SecurityPolicy, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}

	var rows []securityPolicyModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.SecurityPolicy, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainPolicy(item))
	}
	return result, nil
}
