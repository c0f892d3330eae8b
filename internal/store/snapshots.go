package store

import (
	"context"
	"database/sql"
	"errors"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/models"
)

func snapshotKey(id string) string {
	return snapshotKeyPrefix + id
}

// GetStateSnapshot returns the stored state, or nil when none has been built.
func (s *Store) GetStateSnapshot(ctx context.Context, id string) (*models.ConversationState, error) {
	if s.cache != nil {
		var cached models.ConversationState
		ok, err := s.cache.GetJSON(ctx, snapshotKey(id), &cached)
		if err != nil {
			s.logger.Warn("snapshot cache read failed", map[string]interface{}{
				"conversationId": id,
				"error":          err.Error(),
			})
		} else if ok {
			return &cached, nil
		}
	}

	defer s.observe("get_state_snapshot")()

	var raw []byte
	err := s.pg.QueryRow(ctx, `SELECT state FROM conversations WHERE conversation_id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewConversationNotFoundError(id)
	}
	if err != nil {
		return nil, queryError("get_state_snapshot", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var st models.ConversationState
	if err := unmarshalJSON(raw, &st); err != nil {
		return nil, appErrors.NewStateDecodeFailedError(id, err)
	}
	if st.Slots == nil {
		st.Slots = map[string]models.SlotValue{}
	}
	s.cacheSnapshot(ctx, id, st)
	return &st, nil
}

// SaveStateSnapshot persists st. Any failure means the state was not durably updated.
func (s *Store) SaveStateSnapshot(ctx context.Context, id string, st models.ConversationState) error {
	raw, err := marshalJSON(st)
	if err != nil {
		return appErrors.NewStateSaveFailedError(id, err)
	}

	err = s.execOne(ctx, "save_state_snapshot", appErrors.NewConversationNotFoundError(id),
		`UPDATE conversations SET state = $2, updated_at = $3 WHERE conversation_id = $1`,
		id, raw, s.now())
	if err != nil {
		if appErrors.IsCode(err, appErrors.ErrCodeConversationNotFound) {
			return err
		}
		s.evictSnapshot(ctx, id)
		return appErrors.NewStateSaveFailedError(id, err)
	}

	s.cacheSnapshot(ctx, id, st)
	return nil
}

func (s *Store) cacheSnapshot(ctx context.Context, id string, st models.ConversationState) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, snapshotKey(id), st, s.cacheTTL); err != nil {
		s.logger.Warn("snapshot cache write failed", map[string]interface{}{
			"conversationId": id,
			"error":          err.Error(),
		})
		s.evictSnapshot(ctx, id)
	}
}

func (s *Store) evictSnapshot(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, snapshotKey(id)); err != nil {
		s.logger.Warn("snapshot cache evict failed", map[string]interface{}{
			"conversationId": id,
			"error":          err.Error(),
		})
	}
}
