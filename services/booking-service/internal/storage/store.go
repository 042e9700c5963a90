package storage

import (
	"github.com/md-rashed-zaman/appointbook/libs/db"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/outbox"
)

// Store bundles the repositories over one pool.
type Store struct {
	*BookingRepository
	*RulesRepository
}

func New(pool *db.Pool) *Store {
	return &Store{
		BookingRepository: NewBookingRepository(pool, outbox.NewRepository()),
		RulesRepository:   NewRulesRepository(pool),
	}
}
