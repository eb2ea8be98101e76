package storage

import "github.com/IDTOKENONE/spectrum-core/internal/model"

// Storage defines a sink for compound records.
type Storage interface {
	PutCompoundBatch(records []model.CompoundRecord) error
}
