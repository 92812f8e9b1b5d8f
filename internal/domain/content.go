package domain

import (
	"encoding/json"
	"fmt"
)

// DecodeRoundContent parses a round-content payload. Generated payloads
// sometimes arrive double-encoded (a JSON string whose value is the JSON
// document), so a string layer is peeled off first. A round must never
// start on empty content, so a payload without an answer is rejected.
func DecodeRoundContent(raw json.RawMessage) (RoundContent, error) {
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		raw = []byte(nested)
	}

	var content RoundContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return RoundContent{}, fmt.Errorf("%w: %v", ErrContentDecode, err)
	}
	if content.CorrectAnswer == "" && content.Phrase == "" {
		return RoundContent{}, fmt.Errorf("%w: payload has no answer", ErrContentDecode)
	}
	return content, nil
}
