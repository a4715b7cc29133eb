package usecase

import (
	"context"

	domain "github.com/BotCoder254/projects254/internal/entity"
)

type Menu struct {
	repo MenuRepo
}

func NewMenu(repo MenuRepo) *Menu {
	return &Menu{repo: repo}
}

func (uc *Menu) List(ctx context.Context) ([]domain.MenuItem, error) {
	items, err := uc.repo.ListMenu(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.MenuItem{}
	}
	return items, nil
}
