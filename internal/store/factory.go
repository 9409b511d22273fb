package store

import (
	"signalhub.app/correlator/core/db"
)

type Stores struct {
	db *db.DB
}

func NewStores(database *db.DB) *Stores {
	return &Stores{db: database}
}

func (s *Stores) Signals() SignalStore {
	return newSignalStore(s.db)
}

func (s *Stores) Features() FeatureStore {
	return newFeatureStore(s.db)
}

func (s *Stores) Fixes() FixStore {
	return newFixStore(s.db)
}

func (s *Stores) Groups() GroupStore {
	return newGroupStore(s.db)
}

// Embeddings returns the durable tier of the embedding cache.
func (s *Stores) Embeddings() *EmbeddingStore {
	return newEmbeddingStore(s.db)
}
