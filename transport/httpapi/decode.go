package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/story-squad/cohort/types"
)

// clusterRequest is a /cluster body decoded with object key order kept, so
// that equal complexities tie-break in the order the client sent them.
type clusterRequest struct {
	batch types.Batch
	order []string
}

func decodeClusterRequest(r io.Reader) (clusterRequest, error) {
	dec := json.NewDecoder(r)
	req := clusterRequest{batch: make(types.Batch)}

	if err := expectDelim(dec, '{'); err != nil {
		return req, err
	}
	for dec.More() {
		cohortID, err := readKey(dec)
		if err != nil {
			return req, err
		}
		if _, dup := req.batch[cohortID]; dup {
			return req, fmt.Errorf("%w: duplicate cohort %q", types.ErrInvalidInput, cohortID)
		}

		subs, err := decodeCohort(dec)
		if err != nil {
			return req, fmt.Errorf("cohort %q: %w", cohortID, err)
		}
		req.batch[cohortID] = subs
		req.order = append(req.order, cohortID)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return req, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("%w: unexpected data after request body", types.ErrInvalidInput)
	}

	return req, nil
}

func decodeCohort(dec *json.Decoder) ([]types.Submission, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	subs := []types.Submission{}
	for dec.More() {
		id, err := readKey(dec)
		if err != nil {
			return nil, err
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed(err)
		}

		sub, err := types.DecodeSubmissionFields(id, raw)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return malformed(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", types.ErrInvalidInput, want, tok)
	}

	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", malformed(err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", types.ErrInvalidInput, tok)
	}

	return key, nil
}

// malformed classifies a decoding failure. Oversized bodies keep their
// *http.MaxBytesError so the handler can answer 413.
func malformed(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}

	return fmt.Errorf("%w: malformed JSON: %w", types.ErrInvalidInput, err)
}
