package history

import (
	"context"

	"immo-workers/internal/platform"
)

// PlatformStore keeps saved calculations in the hosted entity store.
type PlatformStore struct {
	entities platform.Entities
	schema   Schema
}

func NewPlatformStore(entities platform.Entities, schema Schema) *PlatformStore {
	return &PlatformStore{entities: entities, schema: schema}
}

func (s *PlatformStore) Create(ctx context.Context, calc *SavedCalculation) (*SavedCalculation, error) {
	var out map[string]interface{}
	if err := s.entities.Create(ctx, platform.EntitySavedCalculation, s.schema.Record(calc), &out); err != nil {
		return nil, err
	}
	saved := *calc
	if out != nil {
		parsed := s.schema.Parse(out)
		saved.ID = parsed.ID
		if !parsed.CreatedAt.IsZero() {
			saved.CreatedAt = parsed.CreatedAt
		}
	}
	return &saved, nil
}

func (s *PlatformStore) ListByUser(ctx context.Context, userEmail string, limit int) ([]SavedCalculation, error) {
	var records []map[string]interface{}
	err := s.entities.Filter(ctx, platform.EntitySavedCalculation,
		map[string]interface{}{"user_email": userEmail}, "-created_date", limit, &records)
	if err != nil {
		return nil, err
	}
	out := make([]SavedCalculation, 0, len(records))
	for _, rec := range records {
		out = append(out, s.schema.Parse(rec))
	}
	return out, nil
}
