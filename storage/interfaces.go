package storage

import "car-deal-finder/models"

// ListingWriter is the interface any database backend must satisfy.
type ListingWriter interface {
	Write(listings []*models.ScoredListing) error
	FetchAll() ([]*models.ScoredListing, error)
	Close() error
}

// CanonicalWriter persists the reconciled table before modeling.
type CanonicalWriter interface {
	WriteCanonical(listings []*models.CanonicalListing) error
	Close() error
}

// DealWriter persists the ranked deal table.
type DealWriter interface {
	WriteDeals(rows []models.DealRow) error
	Close() error
}
