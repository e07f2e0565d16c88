package vault

import (
	"fmt"
	"sort"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/guardianvault/vaultd/internal/common"
)

// DefaultConfirmationThreshold is the number of confirmations at which a
// deposit is considered final and credits the ledger.
const DefaultConfirmationThreshold = 6

// OutPoint identifies an unspent Bitcoin transaction output.
type OutPoint struct {
	TxID chainhash.Hash
	Vout uint32
}

// NewOutPoint parses a hex txid into an OutPoint.
func NewOutPoint(txid string, vout uint32) (OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return OutPoint{}, fmt.Errorf("bad txid %q: %w", txid, err)
	}
	return OutPoint{TxID: *hash, Vout: vout}, nil
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Vout)
}

// UtxoState classifies a tracked output.
type UtxoState string

const (
	UtxoPending   UtxoState = "pending"
	UtxoConfirmed UtxoState = "confirmed"
	UtxoSpent     UtxoState = "spent"
)

// Utxo is one tracked deposit output. Height is meaningful only once the
// output is Confirmed. Seq records discovery order.
type Utxo struct {
	OutPoint      OutPoint
	Account       AccountID
	Value         uint64
	Confirmations uint32
	Height        uint32
	State         UtxoState
	Seq           uint64
	DiscoveredAt  time.Time
}

// UtxoReport is one observation delivered by the external Bitcoin
// watcher: the current confirmation count (and block height, once mined)
// of a deposit output.
type UtxoReport struct {
	OutPoint      OutPoint
	Value         uint64
	Confirmations uint32
	Height        uint32
}

// Tracker classifies deposit UTXOs as pending or confirmed and credits
// the ledger exactly once per outpoint when an output first reaches the
// confirmation threshold. A given outpoint is tracked at most once.
type Tracker struct {
	threshold uint32
	ledger    *Ledger
	utxos     map[OutPoint]*Utxo
	nextSeq   uint64
}

// NewTracker creates a tracker crediting the given ledger once outputs
// reach threshold confirmations. A zero threshold falls back to the
// default of 6.
func NewTracker(threshold uint32, ledger *Ledger) *Tracker {
	if threshold == 0 {
		threshold = DefaultConfirmationThreshold
	}
	return &Tracker{
		threshold: threshold,
		ledger:    ledger,
		utxos:     make(map[OutPoint]*Utxo),
		nextSeq:   1,
	}
}

// Threshold returns the confirmation threshold in effect.
func (t *Tracker) Threshold() uint32 {
	return t.threshold
}

// Restore seeds a tracked UTXO from storage without ledger side effects.
func (t *Tracker) Restore(u Utxo) {
	cp := u
	t.utxos[u.OutPoint] = &cp
	if u.Seq >= t.nextSeq {
		t.nextSeq = u.Seq + 1
	}
}

// Lookup returns a snapshot of the tracked output, if any.
func (t *Tracker) Lookup(op OutPoint) (Utxo, bool) {
	u, ok := t.utxos[op]
	if !ok {
		return Utxo{}, false
	}
	return *u, true
}

// Observe applies one watcher report for the given account. New outpoints
// enter Pending (or Confirmed immediately when already at threshold);
// repeats update the confirmation count. The first transition to
// Confirmed sets the height and credits the owning account's ledger
// balance by the output value. Replayed reports of an already confirmed
// output are no-ops, so duplicate delivery never double-credits. The
// returned flag is true when this observation credited the ledger.
func (t *Tracker) Observe(account AccountID, report UtxoReport, now time.Time) (bool, error) {
	u, known := t.utxos[report.OutPoint]
	if !known {
		u = &Utxo{
			OutPoint:      report.OutPoint,
			Account:       account,
			Value:         report.Value,
			Confirmations: report.Confirmations,
			State:         UtxoPending,
			Seq:           t.nextSeq,
			DiscoveredAt:  now,
		}
		t.nextSeq++
		t.utxos[report.OutPoint] = u
	}

	if u.State != UtxoPending {
		return false, nil
	}
	u.Confirmations = report.Confirmations
	if report.Confirmations < t.threshold {
		return false, nil
	}

	if _, err := t.ledger.Mint(u.Account, u.Value, u.OutPoint, now); err != nil {
		// The tracker only confirms each outpoint once, so a duplicate
		// mint means tracker and ledger state have diverged.
		return false, fmt.Errorf("confirming %s: %w", u.OutPoint, err)
	}
	u.State = UtxoConfirmed
	u.Height = report.Height
	return true, nil
}

// MarkSpent transitions a confirmed output to Spent. It backs the
// withdrawal path; spending a pending or unknown output is an error.
func (t *Tracker) MarkSpent(op OutPoint) error {
	u, ok := t.utxos[op]
	if !ok {
		return fmt.Errorf("%w: utxo %s", common.ErrorNotFound, op)
	}
	if u.State != UtxoConfirmed {
		return fmt.Errorf("utxo %s is %s, not confirmed", op, u.State)
	}
	u.State = UtxoSpent
	return nil
}

// Utxos returns the account's Confirmed outputs ordered by height
// ascending, then by outpoint for a stable tie-break.
func (t *Tracker) Utxos(account AccountID) []Utxo {
	var out []Utxo
	for _, u := range t.utxos {
		if u.State == UtxoConfirmed && u.Account.Equal(account) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Height != out[j].Height {
			return out[i].Height < out[j].Height
		}
		return out[i].OutPoint.String() < out[j].OutPoint.String()
	})
	return out
}

// PendingUtxos returns the account's Pending outputs in discovery order.
func (t *Tracker) PendingUtxos(account AccountID) []Utxo {
	var out []Utxo
	for _, u := range t.utxos {
		if u.State == UtxoPending && u.Account.Equal(account) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
