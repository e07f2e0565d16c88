// Package vault implements the custody and recovery core: principal
// identities, the guardian registry, the recovery state machine, the
// satoshi-denominated custodial ledger, and the deposit/UTXO tracker.
//
// Types in this package are plain state; they perform no I/O and do no
// locking. The server's service layer is responsible for serializing
// mutations per account and persisting the results. Every mutating method
// validates its inputs completely before touching state, so a returned
// error always means the receiver is unchanged.
package vault
