package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// GroupSize is the number of members in every group.
const GroupSize = 4

// BotPrefix is prepended to a template's id to form a synthetic submission id.
const BotPrefix = "Bot "

// Submission is a scored item to be grouped.
//
// The JSON field names follow the wire format of the submission service
// ("id" and "Complexity").
type Submission struct {
	// ID uniquely identifies the submission within one partitioning call.
	ID string `json:"id"`

	// Complexity is the sort key. It is produced by an external scorer.
	Complexity float64 `json:"Complexity"`
}

// NewBot returns the synthetic submission that pads a group using template.
//
// Parameters:
//   - template: The real submission whose complexity is copied
//
// Returns:
//   - Submission: {ID: "Bot " + template.ID, Complexity: template.Complexity}
func NewBot(template Submission) Submission {
	return Submission{
		ID:         BotPrefix + template.ID,
		Complexity: template.Complexity,
	}
}

// NewBotCopy returns the nth synthetic submission cloned from template.
//
// Copies after the first get a " (n)" suffix so that ids stay unique when
// one template pads more than once, which only happens for a single
// submission. NewBotCopy(t, 1) equals NewBot(t).
func NewBotCopy(template Submission, nth int) Submission {
	bot := NewBot(template)
	if nth > 1 {
		bot.ID = fmt.Sprintf("%s (%d)", bot.ID, nth)
	}

	return bot
}

// IsBot reports whether the submission is synthetic.
func (s Submission) IsBot() bool {
	return strings.HasPrefix(s.ID, BotPrefix)
}

// UnmarshalJSON decodes a submission, accepting the id as either a JSON
// string or a JSON number. A missing id or a missing, null or non-numeric
// Complexity yields an error wrapping ErrInvalidInput.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         json.RawMessage `json:"id"`
		Complexity json.RawMessage `json:"Complexity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}

	complexity, err := decodeComplexity(raw.Complexity)
	if err != nil {
		return fmt.Errorf("%w (id %q)", err, id)
	}

	s.ID = id
	s.Complexity = complexity

	return nil
}

// DecodeSubmissionFields builds a submission from an id and a JSON object
// carrying at least "Complexity", as in the keyed-object form
// {"<id>": {"Complexity": 12, ...}}. Other fields are ignored.
func DecodeSubmissionFields(id string, data []byte) (Submission, error) {
	var raw struct {
		Complexity json.RawMessage `json:"Complexity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Submission{}, fmt.Errorf("%w: submission %q: %w", ErrInvalidInput, id, err)
	}

	complexity, err := decodeComplexity(raw.Complexity)
	if err != nil {
		return Submission{}, fmt.Errorf("%w (id %q)", err, id)
	}

	return Submission{ID: id, Complexity: complexity}, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: missing id", ErrInvalidInput)
	}

	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("%w: id: %w", ErrInvalidInput, err)
		}

		return id, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("%w: id must be a string or number", ErrInvalidInput)
	}

	return num.String(), nil
}

func decodeComplexity(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing Complexity", ErrInvalidInput)
	}

	var c float64
	if raw[0] == '"' || json.Unmarshal(raw, &c) != nil {
		return 0, fmt.Errorf("%w: Complexity must be a number", ErrInvalidInput)
	}
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0, fmt.Errorf("%w: Complexity must be finite", ErrInvalidInput)
	}

	return c, nil
}

// Group is an ordered set of exactly GroupSize submissions.
type Group [GroupSize]Submission

// IDs returns the member ids in group order.
func (g Group) IDs() []string {
	ids := make([]string, 0, GroupSize)
	for _, s := range g {
		ids = append(ids, s.ID)
	}

	return ids
}

// Bots returns the number of synthetic members.
func (g Group) Bots() int {
	n := 0
	for _, s := range g {
		if s.IsBot() {
			n++
		}
	}

	return n
}
