package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"Apostille/internal/hashtag"
	"Apostille/internal/ledger"
	"Apostille/internal/verifier"
)

// verifyRequest is the body of POST /verify. Data is hex; Text is used when Data is empty.
type verifyRequest struct {
	Data      string `json:"data"`
	Text      string `json:"text"`
	Payload   string `json:"payload"`
	PublicKey string `json:"publicKey"`
}

type verifyResponse struct {
	Valid     bool   `json:"valid"`
	Public    bool   `json:"public"`
	Algorithm string `json:"algorithm"`
}

type classifyRequest struct {
	Payload string `json:"payload"`
}

type classifyResponse struct {
	Apostille bool   `json:"apostille"`
	Public    bool   `json:"public"`
	Private   bool   `json:"private"`
	Algorithm string `json:"algorithm,omitempty"`
}

type operationRequest struct {
	Envelope string `json:"envelope"`
}

// tagInfo describes an apostille tag found in a transfer message.
type tagInfo struct {
	Recipient string `json:"recipient"`
	Tag       string `json:"tag"`
	Algorithm string `json:"algorithm"`
	Public    bool   `json:"public"`
}

type operationResponse struct {
	Hash       string    `json:"hash"`
	Type       string    `json:"type"`
	Network    string    `json:"network"`
	Signer     string    `json:"signer"`
	Valid      bool      `json:"valid"`
	Cosigners  []string  `json:"cosigners"`
	InnerCount int       `json:"innerCount"`
	Tags       []tagInfo `json:"tags"`
}

type identityResponse struct {
	Address           string `json:"address"`
	Network           string `json:"network"`
	PublicKey         string `json:"publicKey"`
	DerivingPublicKey string `json:"derivingPublicKey"`
	Multisig          bool   `json:"multisig"`
	CreatedAt         int64  `json:"createdAt"`
}

// handleVerify handles POST /verify requests.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	data := []byte(req.Text)
	if req.Data != "" {
		var err error
		if data, err = hex.DecodeString(req.Data); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid data hex: %v", err))
			return
		}
	}

	c, err := verifier.ClassifyHex(req.Payload)
	if err != nil {
		writeVerifyError(w, err)
		return
	}

	var valid bool
	if c.IsPrivate {
		if req.PublicKey == "" {
			writeError(w, http.StatusBadRequest, "signed tag needs publicKey")
			return
		}

		pub, err := hex.DecodeString(req.PublicKey)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid publicKey hex: %v", err))
			return
		}

		valid, err = verifier.VerifyPrivateHex(pub, data, req.Payload)
		if err != nil {
			writeVerifyError(w, err)
			return
		}
	} else {
		valid, err = verifier.VerifyPublicHex(data, req.Payload)
		if err != nil {
			writeVerifyError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Valid:     valid,
		Public:    c.IsPublic,
		Algorithm: c.Algorithm.String(),
	})
}

// handleClassify handles POST /classify requests. A non-apostille payload is a
// successful answer with apostille false.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	raw, err := hex.DecodeString(strings.TrimSpace(req.Payload))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}

	c, err := verifier.Classify(raw)
	if errors.Is(err, verifier.ErrNotApostille) {
		writeJSON(w, http.StatusOK, classifyResponse{})
		return
	}
	if err != nil {
		writeVerifyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, classifyResponse{
		Apostille: true,
		Public:    c.IsPublic,
		Private:   c.IsPrivate,
		Algorithm: c.Algorithm.String(),
	})
}

// handleOperation handles POST /operations/verify: it parses a signed envelope,
// checks every signature and reports the apostille tags its transfers carry.
func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	raw, err := hex.DecodeString(strings.TrimSpace(req.Envelope))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid envelope hex: %v", err))
		return
	}

	signed, err := ledger.ParseSigned(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid envelope: %v", err))
		return
	}

	op, err := signed.Operation()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid operation: %v", err))
		return
	}

	cosigners := make([]string, 0, len(signed.Cosignatures))
	for _, pk := range signed.CosignerKeys() {
		cosigners = append(cosigners, hex.EncodeToString(pk))
	}

	writeJSON(w, http.StatusOK, operationResponse{
		Hash:       signed.HashHex(),
		Type:       signed.Type.String(),
		Network:    signed.Network.String(),
		Signer:     hex.EncodeToString(signed.Signer),
		Valid:      signed.Verify(),
		Cosigners:  cosigners,
		InnerCount: signed.InnerCount,
		Tags:       collectTags(op),
	})
}

// collectTags returns the apostille tags carried by transfers in op, inner ones included.
func collectTags(op ledger.Operation) []tagInfo {
	tags := []tagInfo{}

	var visit func(ledger.Operation)
	visit = func(op ledger.Operation) {
		switch v := op.(type) {
		case *ledger.Transfer:
			t, err := hashtag.Parse(string(v.Message))
			if err != nil {
				return
			}

			c, err := verifier.Classify(t)
			if err != nil {
				return
			}

			tags = append(tags, tagInfo{
				Recipient: v.Recipient.String(),
				Tag:       t.Hex(),
				Algorithm: c.Algorithm.String(),
				Public:    c.IsPublic,
			})

		case *ledger.Aggregate:
			for _, in := range v.Inner {
				visit(in.Operation)
			}
		}
	}

	visit(op)

	return tags
}

// decodeBody reads a JSON body of at most maxBodySize into v.
// It writes the error response and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))

	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}

		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}

	return true
}

// writeVerifyError maps verifier errors to HTTP statuses.
func writeVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verifier.ErrNotApostille),
		errors.Is(err, verifier.ErrUnknownAlgorithm),
		errors.Is(err, verifier.ErrWrongMode):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
