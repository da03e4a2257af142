package universe

// TxKind names a transaction type in journals and on the wire.
type TxKind string

const (
	KindTransfer TxKind = "transfer"
	KindMint     TxKind = "mint"
	KindBurn     TxKind = "burn"
)

// Transaction is a validated state transition. check inspects the ledger
// without touching it; commit is only called after check succeeded and
// cannot fail. Together they give all-or-nothing application.
type Transaction interface {
	Kind() TxKind
	check(l *Ledger) error
	commit(l *Ledger)
}

// TransferTx moves Amount from From to To. Total supply is unchanged.
type TransferTx struct {
	From   LabelID `json:"from"`
	To     LabelID `json:"to"`
	Amount Balance `json:"amount"`
}

// Kind implements Transaction.
func (TransferTx) Kind() TxKind { return KindTransfer }

// check validates in a fixed order: amount, then source funds, then labels.
// Unknown labels are zero-balance accounts, not errors.
func (tx TransferTx) check(l *Ledger) error {
	if tx.Amount.IsZero() {
		return NewInvalidAmountError("transfer amount must be greater than zero")
	}
	from := tx.From.normalized()
	if have := l.BalanceOf(from); have.Cmp(tx.Amount) < 0 {
		return NewInsufficientBalanceError(&from, have, tx.Amount)
	}
	if err := tx.From.Validate(); err != nil {
		return err
	}
	return tx.To.Validate()
}

func (tx TransferTx) commit(l *Ledger) {
	from, to := tx.From.normalized(), tx.To.normalized()
	if from == to {
		return
	}
	// check guarantees the subtraction cannot underflow.
	remaining, _ := l.BalanceOf(from).Sub(tx.Amount)
	l.setBalance(from, remaining)
	l.setBalance(to, l.BalanceOf(to).Add(tx.Amount))
}

// MintTx creates Amount new units in To. It is one of the two operations
// allowed to change total supply.
type MintTx struct {
	To     LabelID `json:"to"`
	Amount Balance `json:"amount"`
}

// Kind implements Transaction.
func (MintTx) Kind() TxKind { return KindMint }

func (tx MintTx) check(l *Ledger) error {
	if tx.Amount.IsZero() {
		return NewInvalidAmountError("mint amount must be greater than zero")
	}
	return tx.To.Validate()
}

func (tx MintTx) commit(l *Ledger) {
	l.setBalance(tx.To, l.BalanceOf(tx.To).Add(tx.Amount))
}

// BurnTx destroys Amount units held by From.
type BurnTx struct {
	From   LabelID `json:"from"`
	Amount Balance `json:"amount"`
}

// Kind implements Transaction.
func (BurnTx) Kind() TxKind { return KindBurn }

func (tx BurnTx) check(l *Ledger) error {
	if tx.Amount.IsZero() {
		return NewInvalidAmountError("burn amount must be greater than zero")
	}
	from := tx.From.normalized()
	if have := l.BalanceOf(from); have.Cmp(tx.Amount) < 0 {
		return NewInsufficientBalanceError(&from, have, tx.Amount)
	}
	return tx.From.Validate()
}

func (tx BurnTx) commit(l *Ledger) {
	remaining, _ := l.BalanceOf(tx.From).Sub(tx.Amount)
	l.setBalance(tx.From, remaining)
}
