package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"tender_spider/internal/models"
)

// LegacyBucket receives the entries of a flat {identity: ts} document.
const LegacyBucket = "ilan"

// encodeState renders the state as {bucket: {identity: ts}} with sorted keys.
func encodeState(state models.SeenState) ([]byte, error) {
	if state == nil {
		state = models.SeenState{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode seen state: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeState accepts both the bucketed layout and the legacy flat layout,
// including a mix of the two. Entries that are neither are skipped. An
// identity present twice in a bucket keeps its earliest first-seen time.
func decodeState(data []byte) (models.SeenState, error) {
	state := models.SeenState{}
	if len(bytes.TrimSpace(data)) == 0 {
		return state, nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode seen state: %w", err)
	}
	for key, raw := range top {
		switch firstByte(raw) {
		case '{':
			var records map[string]string
			if err := json.Unmarshal(raw, &records); err != nil {
				continue
			}
			for id, ts := range records {
				mergeRecord(state, key, id, ts)
			}
		case '"':
			var ts string
			if err := json.Unmarshal(raw, &ts); err != nil {
				continue
			}
			mergeRecord(state, LegacyBucket, key, ts)
		}
	}
	return state, nil
}

func mergeRecord(state models.SeenState, bucket, id, ts string) {
	b := state[bucket]
	if b == nil {
		b = map[string]string{}
		state[bucket] = b
	}
	if prev, ok := b[id]; ok && !earlier(ts, prev) {
		return
	}
	b[id] = ts
}

func earlier(a, b string) bool {
	ta, errA := time.Parse(TimeLayout, a)
	tb, errB := time.Parse(TimeLayout, b)
	if errA != nil || errB != nil {
		return a < b
	}
	return ta.Before(tb)
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
