package grid

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedLinks reports a stored link payload that is not a JSON list of links.
var ErrMalformedLinks = errors.New("malformed link payload")

// Link points from one activity to the grid location of a following step.
// Decision activities label each branch with a condition.
type Link struct {
	Condition string `json:"condition,omitempty"`
	Next      string `json:"next"`
}

// DecodeLinks parses the persisted connections column. Blank payloads mean no
// links. A payload that does not decode returns ErrMalformedLinks; callers
// treat those links as empty.
func DecodeLinks(raw string) ([]Link, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var links []Link
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, errors.Join(ErrMalformedLinks, err)
	}
	return links, nil
}

// EncodeLinks serialises links in order. An empty list encodes to "".
func EncodeLinks(links []Link) (string, error) {
	if len(links) == 0 {
		return "", nil
	}
	body, err := json.Marshal(links)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
