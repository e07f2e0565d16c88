package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/guardianvault/vaultd/internal/client/client"
)

// DepositAddress prints the caller's deterministic deposit address.
func (a *App) DepositAddress(ctx context.Context) error {
	address, err := a.api.DepositAddress(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Println("Deposit address: " + address)
	return nil
}

// Utxos prints the caller's confirmed deposit outputs.
func (a *App) Utxos(ctx context.Context) error {
	utxos, err := a.api.Utxos(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	printUtxos(utxos)
	return nil
}

// PendingUtxos prints deposit outputs still waiting for confirmations.
func (a *App) PendingUtxos(ctx context.Context) error {
	utxos, err := a.api.PendingUtxos(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	printUtxos(utxos)
	return nil
}

func printUtxos(utxos []*client.Utxo) {
	if len(utxos) == 0 {
		fmt.Println("No outputs.")
		return
	}
	for _, u := range utxos {
		fmt.Printf("%s:%d\t%d sat\t%d conf\theight %d\t%s\n",
			u.TxID, u.Vout, u.Value, u.Confirmations, u.Height, u.State)
	}
}
