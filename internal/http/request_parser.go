// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for decoding request bodies and path
// parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// errMalformedBody marks a body that is not the expected JSON document.
var errMalformedBody = errors.New("invalid request body")

// updateRequest is the body of POST /api/user/update.
type updateRequest struct {
	Email    string             `json:"email"`
	Income   *float64           `json:"income"`
	Expenses map[string]float64 `json:"expenses"`
	Savings  *core.Savings      `json:"savings"`
}

func (u updateRequest) toUpdate() core.ProfileUpdate {
	return core.ProfileUpdate{Income: u.Income, Expenses: u.Expenses, Savings: u.Savings}
}

// transactionRequest is the body of POST /api/transaction.
type transactionRequest struct {
	Email       string           `json:"email"`
	Transaction *core.EntryInput `json:"transaction"`
}

// readBody reads at most maxBodyBytes of r's body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return body, nil
}

// decodeJSON reads one JSON object into dst. Numbers are kept as json.Number
// so amounts sent as strings or numbers reach the ledger parser unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// parseIndex converts a path segment to a transaction index. Anything that
// is not a base-10 integer yields -1, which the ledger rejects as out of
// range once the profile is known to exist.
func parseIndex(raw string) int {
	i, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return -1
	}
	return i
}

// pathEmail returns the decoded email path parameter. chi routes on the raw
// path when the client escaped it, so "a%40x.com" arrives still encoded.
func pathEmail(r *http.Request) (string, error) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		return "", &core.ValidationError{Field: "email", Err: core.ErrInvalidEmail}
	}
	return email, nil
}
