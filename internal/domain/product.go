package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Category    string

	CreatedAt time.Time
	UpdatedAt time.Time
}
