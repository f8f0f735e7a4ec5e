package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"livebets/line_tracker/internal/entity"

	"github.com/rs/zerolog"
)

// HistoryStore keeps the line history of every game in one document,
// keyed by game id.
type HistoryStore struct {
	docs   DocumentStore
	key    string
	logger *zerolog.Logger
}

func NewHistoryStore(docs DocumentStore, key string, logger *zerolog.Logger) *HistoryStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &HistoryStore{
		docs:   docs,
		key:    key,
		logger: logger,
	}
}

// Record appends snap to the history of id unless it carries the same
// spread, total and time status as the last entry.
//
// When err is non-nil it wraps ErrDegraded and changed is always true: a
// store fault must not hide a line move from the caller.
func (h *HistoryStore) Record(ctx context.Context, id string, snap entity.LineSnapshot) (changed bool, err error) {
	all, err := h.load(ctx)
	if err != nil {
		return true, err
	}

	entries := all[id]
	if n := len(entries); n > 0 && entries[n-1].SameLine(snap) {
		return false, nil
	}
	all[id] = append(entries, snap)

	if err := h.save(ctx, all); err != nil {
		return true, err
	}
	return true, nil
}

// Read returns the history of id in insertion order. A missing or corrupt
// document reads as empty; err is only set when the backend itself failed.
func (h *HistoryStore) Read(ctx context.Context, id string) ([]entity.LineSnapshot, error) {
	all, err := h.load(ctx)
	if err != nil {
		return []entity.LineSnapshot{}, err
	}
	entries := all[id]
	if entries == nil {
		return []entity.LineSnapshot{}, nil
	}
	return entries, nil
}

func (h *HistoryStore) load(ctx context.Context) (map[string][]entity.LineSnapshot, error) {
	doc, err := h.docs.Load(ctx, h.key)
	if err != nil {
		h.logger.Error().Err(err).Str("key", h.key).Msg("load line history")
		return nil, fmt.Errorf("%w: load %s: %w", ErrDegraded, h.key, err)
	}

	all := make(map[string][]entity.LineSnapshot)
	if len(doc) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(doc, &all); err != nil {
		h.logger.Warn().Err(err).Str("key", h.key).Msg("corrupt line history, starting empty")
		return make(map[string][]entity.LineSnapshot), nil
	}
	return all, nil
}

func (h *HistoryStore) save(ctx context.Context, all map[string][]entity.LineSnapshot) error {
	doc, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrDegraded, h.key, err)
	}
	if err := h.docs.Save(ctx, h.key, doc); err != nil {
		h.logger.Error().Err(err).Str("key", h.key).Msg("save line history")
		return fmt.Errorf("%w: save %s: %w", ErrDegraded, h.key, err)
	}
	return nil
}
