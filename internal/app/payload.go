package app

import (
	"fmt"
	"strings"
)

// Postback payloads are the only state carried between a served question and
// the follow-up click, so their encoding has to round-trip exactly. Fields
// are joined with payloadSep; encoding rejects any field containing the
// separator (ids are hex/uuid strings and category tags are plain words, so
// this never triggers in practice).
const (
	answerMarker = "ANSWER"
	nextMarker   = "NEXT"
	payloadSep   = "|"
)

func encodeAnswerPayload(questionID, letter string) (string, error) {
	if err := checkPayloadField(questionID); err != nil {
		return "", err
	}
	if err := checkPayloadField(letter); err != nil {
		return "", err
	}
	return answerMarker + payloadSep + questionID + payloadSep + letter, nil
}

func encodeNextPayload(category string) (string, error) {
	if err := checkPayloadField(category); err != nil {
		return "", err
	}
	return nextMarker + payloadSep + category, nil
}

func checkPayloadField(field string) error {
	if field == "" {
		return fmt.Errorf("empty payload field")
	}
	if strings.Contains(field, payloadSep) {
		return fmt.Errorf("payload field %q contains separator %q", field, payloadSep)
	}
	return nil
}

func decodeAnswerPayload(payload string) (questionID, letter string, ok bool) {
	parts := strings.Split(payload, payloadSep)
	if len(parts) != 3 || parts[0] != answerMarker || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func decodeNextPayload(payload string) (category string, ok bool) {
	parts := strings.Split(payload, payloadSep)
	if len(parts) != 2 || parts[0] != nextMarker || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func isAnswerPayload(payload string) bool {
	return strings.HasPrefix(payload, answerMarker+payloadSep)
}

func isNextPayload(payload string) bool {
	return strings.HasPrefix(payload, nextMarker+payloadSep)
}
