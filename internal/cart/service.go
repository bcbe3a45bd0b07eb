package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/internal/catalog"
	"github.com/ecofashion/ecofashion-backend/pkg/db"
	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the per-user cart operations.
type Service interface {
	Get(ctx context.Context, userID uint) (*models.CartRecord, error)
	AddItem(ctx context.Context, userID uint, input AddItemInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uint) error
	Clear(ctx context.Context, userID uint) error
}

// AddItemInput adds one catalog item to the cart. Exactly one of MaterialID,
// DesignID, ProductID must be set, matching ItemType.
type AddItemInput struct {
	ItemType   enums.OrderItemType
	MaterialID *uint
	DesignID   *uint
	ProductID  *uint
	Quantity   int
}

type service struct {
	tx      txRunner
	repo    Repository
	catalog catalog.Repository
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Tx      txRunner
	Repo    Repository
	Catalog catalog.Repository
}

// NewService wires the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{
		tx:      params.Tx,
		repo:    params.Repo,
		catalog: params.Catalog,
	}, nil
}

// Get returns the user's cart, creating an empty one on first touch.
func (s *service) Get(ctx context.Context, userID uint) (*models.CartRecord, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return nil, err
	}

	created := &models.CartRecord{UserID: userID}
	if err := s.repo.Create(ctx, created); err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.repo.FindByUserID(ctx, userID)
		}
		return nil, err
	}
	created.Items = []models.CartItem{}
	return created, nil
}

// AddItem appends a catalog item to the cart with a display price snapshot.
// Adding an item already in the cart merges quantities instead of creating a
// second line.
func (s *service) AddItem(ctx context.Context, userID uint, input AddItemInput) (*models.CartItem, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	refID, price, err := s.resolveItem(ctx, input)
	if err != nil {
		return nil, err
	}

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result *models.CartItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindItemByRef(ctx, cart.ID, input.ItemType, refID)
		if err == nil {
			existing.Quantity += input.Quantity
			existing.UnitPrice = price
			if err := repo.UpdateItem(ctx, existing); err != nil {
				return err
			}
			result = existing
			return nil
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			return err
		}

		item := &models.CartItem{
			CartID:     cart.ID,
			ItemType:   input.ItemType,
			MaterialID: input.MaterialID,
			DesignID:   input.DesignID,
			ProductID:  input.ProductID,
			Quantity:   input.Quantity,
			UnitPrice:  price,
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uint) error {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.DeleteItem(ctx, cart.ID, itemID)
}

func (s *service) Clear(ctx context.Context, userID uint) error {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil
		}
		return err
	}
	return s.repo.DeleteAllItems(ctx, cart.ID)
}

// resolveItem checks the referenced catalog record exists and is active, and
// returns its current price for the display snapshot.
func (s *service) resolveItem(ctx context.Context, input AddItemInput) (uint, decimal.Decimal, error) {
	switch input.ItemType {
	case enums.OrderItemTypeMaterial:
		if input.MaterialID == nil || input.DesignID != nil || input.ProductID != nil {
			return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "material line must reference exactly one material")
		}
		material, err := s.catalog.FindMaterialByID(ctx, *input.MaterialID)
		if err != nil {
			return 0, decimal.Zero, err
		}
		if !material.IsActive {
			return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "material is not for sale")
		}
		return material.ID, material.Price, nil
	case enums.OrderItemTypeDesign:
		if input.DesignID == nil || input.MaterialID != nil || input.ProductID != nil {
			return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "design line must reference exactly one design")
		}
		design, err := s.catalog.FindDesignByID(ctx, *input.DesignID)
		if err != nil {
			return 0, decimal.Zero, err
		}
		if !design.IsActive {
			return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "design is not for sale")
		}
		return design.ID, design.Price, nil
	case enums.OrderItemTypeProduct:
		if input.ProductID == nil || input.MaterialID != nil || input.DesignID != nil {
			return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product line must reference exactly one product")
		}
		product, err := s.catalog.FindProductByID(ctx, *input.ProductID)
		if err != nil {
			return 0, decimal.Zero, err
		}
		if !product.IsActive {
			return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product is not for sale")
		}
		return product.ID, product.Price, nil
	default:
		return 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "unknown cart item type")
	}
}
