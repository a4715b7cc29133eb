package usecase

import (
	"context"
	"errors"
	"strings"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/shopspring/decimal"
)

type CartView struct {
	Items []domain.CartItem
	Total decimal.Decimal
	Count int
}

// Cart validates cart mutations before they reach the store.
type Cart struct {
	store CartStore
}

func NewCart(store CartStore) *Cart {
	return &Cart{store: store}
}

func (uc *Cart) Add(ctx context.Context, sessionID string, item domain.CartItem) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if err := item.Validate(); err != nil {
		return errors.Join(ErrValidation, err)
	}
	return uc.store.Add(ctx, sessionID, item)
}

func (uc *Cart) Remove(ctx context.Context, sessionID, itemID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if strings.TrimSpace(itemID) == "" {
		return validationf("item_id required")
	}
	return uc.store.Remove(ctx, sessionID, itemID)
}

// SetQuantity rejects qty outside 1..MaxQuantity; removing a line goes
// through Remove.
func (uc *Cart) SetQuantity(ctx context.Context, sessionID, itemID string, qty int) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if strings.TrimSpace(itemID) == "" {
		return validationf("item_id required")
	}
	if qty < 1 || qty > domain.MaxQuantity {
		return errors.Join(ErrValidation, domain.ErrInvalidQuantity)
	}
	return uc.store.SetQuantity(ctx, sessionID, itemID, qty)
}

// Sync swaps the whole cart for items, merging repeated ids.
func (uc *Cart) Sync(ctx context.Context, sessionID string, items []domain.CartItem) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	merged := make([]domain.CartItem, 0, len(items))
	at := map[string]int{}
	for _, it := range items {
		if it.Quantity == 0 {
			it.Quantity = 1
		}
		if err := it.Validate(); err != nil {
			return errors.Join(ErrValidation, err)
		}
		if i, ok := at[it.ID]; ok {
			merged[i].Quantity += it.Quantity
			if err := merged[i].Validate(); err != nil {
				return errors.Join(ErrValidation, err)
			}
			continue
		}
		at[it.ID] = len(merged)
		merged = append(merged, it)
	}
	return uc.store.Replace(ctx, sessionID, merged)
}

func (uc *Cart) View(ctx context.Context, sessionID string) (CartView, error) {
	if err := requireSession(sessionID); err != nil {
		return CartView{}, err
	}
	items, err := uc.store.Get(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	return CartView{Items: items, Total: domain.CartTotal(items), Count: domain.CartCount(items)}, nil
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return validationf("session required")
	}
	return nil
}
