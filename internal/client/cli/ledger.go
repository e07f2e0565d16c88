package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
)

// Balance prints the caller's ckBTC balance.
func (a *App) Balance(ctx context.Context) error {
	balance, err := a.api.Balance(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Printf("Balance: %d sat\n", balance)
	return nil
}

// Fee prints the flat transfer fee the ledger charges.
func (a *App) Fee(ctx context.Context) error {
	fee, err := a.api.Fee(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Printf("Transfer fee: %d sat\n", fee)
	return nil
}

// Transfer prompts for a recipient, an amount and an optional memo and
// submits a ledger transfer.
func (a *App) Transfer(ctx context.Context) error {
	toOwner, err := getSimpleText(a.reader, "Enter recipient principal", os.Stdout)
	if err != nil {
		return err
	}
	amount, err := a.promptAmount()
	if err != nil {
		return err
	}
	memo, err := getSimpleText(a.reader, "Enter memo (optional)", os.Stdout)
	if err != nil {
		return err
	}

	id, err := a.api.Transfer(ctx, toOwner, amount, []byte(memo))
	if err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Printf("Transfer recorded, block index %d\n", id)
	return nil
}

// Withdraw prompts for a Bitcoin address and an amount and burns the
// balance towards an on-chain payout.
func (a *App) Withdraw(ctx context.Context) error {
	address, err := getSimpleText(a.reader, "Enter Bitcoin address", os.Stdout)
	if err != nil {
		return err
	}
	amount, err := a.promptAmount()
	if err != nil {
		return err
	}

	id, err := a.api.Withdraw(ctx, address, amount)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Printf("Withdrawal recorded, block index %d\n", id)
	return nil
}

// Transactions prints the caller's ledger history.
func (a *App) Transactions(ctx context.Context) error {
	txs, err := a.api.Transactions(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	if len(txs) == 0 {
		fmt.Println("No transactions.")
		return nil
	}
	for _, tx := range txs {
		line := fmt.Sprintf("%d\t%s\t%d sat", tx.ID, tx.Kind, tx.Amount)
		switch tx.Kind {
		case "transfer":
			line += fmt.Sprintf("\t%s -> %s (fee %d)", tx.FromOwner, tx.ToOwner, tx.Fee)
		case "mint":
			line += fmt.Sprintf("\t-> %s", tx.ToOwner)
		case "burn":
			line += fmt.Sprintf("\t%s -> %s", tx.FromOwner, tx.BtcAddress)
		}
		fmt.Println(line)
	}
	return nil
}

func (a *App) promptAmount() (uint64, error) {
	raw, err := getSimpleText(a.reader, "Enter amount (sat)", os.Stdout)
	if err != nil {
		return 0, err
	}
	amount, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		log.Printf("Invalid amount: %s", err.Error())
		return 0, err
	}
	return amount, nil
}
