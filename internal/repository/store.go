package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories that share one connection or transaction.
type Store struct {
	db *gorm.DB

	Categories  *CategoryRepository
	Activities  *ActivityRepository
	Templates   *TemplateRepository
	Tasks       *ActivityTaskRepository
	External    *ExternalEventRepository
	Reflections *ReflectionRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Categories:  NewCategoryRepository(db),
		Activities:  NewActivityRepository(db),
		Templates:   NewTemplateRepository(db),
		Tasks:       NewActivityTaskRepository(db),
		External:    NewExternalEventRepository(db),
		Reflections: NewReflectionRepository(db),
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to a single transaction. Any
// error returned by fn rolls everything back. Calling Transaction on a Store
// that is already transactional nests through a savepoint.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
