package store

import (
	"context"

	"gorm.io/gorm"
)

// Dictionary is a small CRUD repository shared by the reference tables
// (categories, projects, accounts, contractors, transfers).
type Dictionary[T any] struct {
	db    *gorm.DB
	order string
}

func NewDictionary[T any](db *gorm.DB) *Dictionary[T] {
	return &Dictionary[T]{db: db, order: "id"}
}

// OrderBy changes the listing order.
func (d *Dictionary[T]) OrderBy(order string) *Dictionary[T] {
	d.order = order
	return d
}

func (d *Dictionary[T]) List(ctx context.Context) ([]T, error) {
	items := make([]T, 0)
	if err := d.db.WithContext(ctx).Order(d.order).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (d *Dictionary[T]) Create(ctx context.Context, item *T) error {
	return d.db.WithContext(ctx).Create(item).Error
}

// Update writes the non-zero fields of item onto row id.
func (d *Dictionary[T]) Update(ctx context.Context, id uint, item *T) error {
	res := d.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Omit("id").Updates(item)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
