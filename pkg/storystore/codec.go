package storystore

import (
	"encoding/json"
	"fmt"

	"github.com/inkforge-labs/inkforge/pkg/store"
	"github.com/inkforge-labs/inkforge/pkg/story"
)

func putSupport(m store.Map, key []byte, sup story.Support) error {
	raw, err := json.Marshal(sup)
	if err != nil {
		return fmt.Errorf("failed to encode support record: %w", err)
	}
	return m.Set(key, raw)
}

func getSupport(m store.Map, key []byte) (*story.Support, bool, error) {
	raw, ok, err := m.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	sup, err := decodeSupport(raw)
	if err != nil {
		return nil, false, err
	}
	return sup, true, nil
}

func decodeSupport(raw []byte) (*story.Support, error) {
	var sup story.Support
	if err := json.Unmarshal(raw, &sup); err != nil {
		return nil, fmt.Errorf("failed to decode support record: %w", err)
	}
	return &sup, nil
}
