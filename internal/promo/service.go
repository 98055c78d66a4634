package promo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/internal/audit"
	"github.com/omarashraf/dokkan-backend/pkg/db"
	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
)

// Service defines promo code management and checkout-time resolution.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PromoCode, error)
	Resolve(ctx context.Context, code string) (*models.PromoCode, error)
	List(ctx context.Context) ([]models.PromoCode, error)
	SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*models.PromoCode, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo  Repository
	audit audit.Service
	tx    txRunner
}

// CreateInput captures a new promo code definition.
type CreateInput struct {
	Code         string
	Description  string
	Percent      int
	MaxSaleCents *int64
	Active       bool
}

// NewService wires a promo service with its dependencies.
func NewService(repo Repository, auditSvc audit.Service, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, audit: auditSvc, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PromoCode, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}
	if input.Percent <= 0 || input.Percent >= 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo percent must be between 1 and 99")
	}
	if input.MaxSaleCents != nil && *input.MaxSaleCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo cap must be positive")
	}

	promo := &models.PromoCode{
		Code:         code,
		Description:  input.Description,
		Percent:      input.Percent,
		MaxSaleCents: input.MaxSaleCents,
		Active:       input.Active,
	}
	if err := s.repo.Create(ctx, promo); err != nil {
		if db.IsUniqueViolation(err, "idx_promo_codes_code") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("promo code %s already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create promo code")
	}
	return promo, nil
}

// Resolve returns the promo a checkout may apply. Unknown codes and inactive
// codes are both rejected; checkout never silently drops a promo.
func (s *service) Resolve(ctx context.Context, code string) (*models.PromoCode, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}

	promo, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("promo code %s not found", strings.ToUpper(strings.TrimSpace(code))))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve promo code")
	}
	if !promo.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promo code %s is not active", promo.Code))
	}
	return promo, nil
}

func (s *service) List(ctx context.Context) ([]models.PromoCode, error) {
	return s.repo.List(ctx)
}

func (s *service) SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*models.PromoCode, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	promo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promo code")
	}
	if promo.Active == active {
		return promo, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, terr := s.repo.WithTx(tx).SetActive(ctx, id, active)
		if terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "toggle promo code")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "promo code changed concurrently")
		}

		_, terr = s.audit.WithTx(tx).RecordEdit(ctx, audit.RecordEditInput{
			EditorID:   &actorID,
			EntityType: enums.AuditEntityPromoCode,
			EntityID:   id,
			Field:      "active",
			OldValue:   strconv.FormatBool(promo.Active),
			NewValue:   strconv.FormatBool(active),
		})
		return terr
	})
	if err != nil {
		return nil, err
	}

	promo.Active = active
	return promo, nil
}

func (s *service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).SoftDelete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete promo code")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}

		_, err = s.audit.WithTx(tx).RecordDelete(ctx, audit.RecordDeleteInput{
			DeleterID:  actorID,
			EntityType: enums.AuditEntityPromoCode,
			EntityID:   id,
		})
		return err
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
