package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/roach88/dlog/internal/store"
	"github.com/roach88/dlog/internal/universe"
)

type healthResponse struct {
	Status      string           `json:"status"`
	JournalSeq  int64            `json:"journal_seq"`
	TotalSupply universe.Balance `json:"total_supply"`
}

type balanceResponse struct {
	Owner   string           `json:"owner"`
	Label   string           `json:"label"`
	Balance universe.Balance `json:"balance"`
	Height  *uint64          `json:"height,omitempty"`
}

// maxSubmitBody bounds a transaction request body.
const maxSubmitBody = 1 << 20

type verifyResponse struct {
	store.SnapshotRecord
	Verified bool `json:"verified"`
}

type proofResponse struct {
	Snapshot store.SnapshotRecord  `json:"snapshot"`
	Proof    universe.BalanceProof `json:"proof"`
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.node.Ping(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		JournalSeq:  s.node.JournalSeq(),
		TotalSupply: s.node.TotalSupply(),
	})
}

// GET /snapshot
func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := s.node.LatestSnapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// POST /fold
func (s *Server) handleFold(w http.ResponseWriter, r *http.Request) {
	rec, err := s.node.Fold(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

// GET /snapshots?limit=N
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, badRequest("limit must be a non-negative integer, got %q", v))
			return
		}
		limit = n
	}

	records, err := s.node.Snapshots(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// GET /snapshots/{height}
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	height, err := pathHeight(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.node.Snapshot(r.Context(), height)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// GET /snapshots/{height}/verify
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	height, err := pathHeight(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.node.Verify(r.Context(), height)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, verifyResponse{SnapshotRecord: rec, Verified: true})
}

// GET /snapshots/{height}/proof/{owner}/{label}
func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	height, err := pathHeight(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	proof, rec, err := s.node.Prove(r.Context(), height, pathLabel(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, proofResponse{Snapshot: rec, Proof: proof})
}

// GET /snapshots/{height}/balances/{owner}/{label}
func (s *Server) handleBalanceAt(w http.ResponseWriter, r *http.Request) {
	height, err := pathHeight(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	label := pathLabel(r)
	balance, err := s.node.BalanceAt(r.Context(), height, label)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balanceResponse{
		Owner:   label.Owner,
		Label:   label.Label,
		Balance: balance,
		Height:  &height,
	})
}

// GET /balances/{owner}/{label}
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	label := pathLabel(r)
	s.writeJSON(w, http.StatusOK, balanceResponse{
		Owner:   label.Owner,
		Label:   label.Label,
		Balance: s.node.BalanceOf(label),
	})
}

// GET /balances/{owner}/{label}/history
func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	points, err := s.node.BalanceHistory(r.Context(), pathLabel(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

// POST /transfers
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var tx universe.TransferTx
	s.submit(w, r, &tx, func() universe.Transaction { return tx })
}

// POST /mints
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var tx universe.MintTx
	s.submit(w, r, &tx, func() universe.Transaction { return tx })
}

// POST /burns
func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var tx universe.BurnTx
	s.submit(w, r, &tx, func() universe.Transaction { return tx })
}

// submit decodes the request body into dst, then submits the transaction
// returned by tx.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, dst any, tx func() universe.Transaction) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, badRequest("invalid request body: %v", err))
		return
	}

	receipt, err := s.node.Submit(r.Context(), tx())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, receipt)
}

func pathHeight(r *http.Request) (uint64, error) {
	raw := r.PathValue("height")
	height, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, badRequest("height must be a non-negative integer, got %q", raw)
	}
	return height, nil
}

func pathLabel(r *http.Request) universe.LabelID {
	return universe.NewLabelID(r.PathValue("owner"), r.PathValue("label"))
}
