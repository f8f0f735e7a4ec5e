package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"livebets/line_tracker/internal/entity"

	"github.com/rs/zerolog"
)

// OpportunityStore keeps the latest opportunity of every game. Saving
// overwrites the previous record of the same id.
type OpportunityStore struct {
	docs   DocumentStore
	key    string
	logger *zerolog.Logger
}

func NewOpportunityStore(docs DocumentStore, key string, logger *zerolog.Logger) *OpportunityStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &OpportunityStore{
		docs:   docs,
		key:    key,
		logger: logger,
	}
}

func (o *OpportunityStore) Save(ctx context.Context, id string, opp entity.Opportunity) error {
	all, err := o.All(ctx)
	if err != nil {
		return err
	}
	all[id] = opp

	doc, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrDegraded, o.key, err)
	}
	if err := o.docs.Save(ctx, o.key, doc); err != nil {
		o.logger.Error().Err(err).Str("key", o.key).Str("game_id", id).Msg("save opportunity")
		return fmt.Errorf("%w: save %s: %w", ErrDegraded, o.key, err)
	}
	return nil
}

// Get returns the stored opportunity of id, or nil when there is none.
func (o *OpportunityStore) Get(ctx context.Context, id string) (*entity.Opportunity, error) {
	all, err := o.All(ctx)
	if err != nil {
		return nil, err
	}
	opp, ok := all[id]
	if !ok {
		return nil, nil
	}
	return &opp, nil
}

// All returns every stored opportunity. A missing or corrupt document
// reads as empty.
func (o *OpportunityStore) All(ctx context.Context) (map[string]entity.Opportunity, error) {
	doc, err := o.docs.Load(ctx, o.key)
	if err != nil {
		o.logger.Error().Err(err).Str("key", o.key).Msg("load opportunities")
		return make(map[string]entity.Opportunity), fmt.Errorf("%w: load %s: %w", ErrDegraded, o.key, err)
	}

	all := make(map[string]entity.Opportunity)
	if len(doc) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(doc, &all); err != nil {
		o.logger.Warn().Err(err).Str("key", o.key).Msg("corrupt opportunities, starting empty")
		return make(map[string]entity.Opportunity), nil
	}
	return all, nil
}
