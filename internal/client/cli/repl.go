package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Guardians(ctx context.Context) error
	SetGuardians(ctx context.Context) error
	Recover(ctx context.Context) error
	Approve(ctx context.Context) error
	Status(ctx context.Context) error
	Requests(ctx context.Context) error
	Balance(ctx context.Context) error
	Fee(ctx context.Context) error
	Transfer(ctx context.Context) error
	Withdraw(ctx context.Context) error
	Transactions(ctx context.Context) error
	DepositAddress(ctx context.Context) error
	Utxos(ctx context.Context) error
	PendingUtxos(ctx context.Context) error
}

// runREPL reads a line from the provided scanner, parses the first token
// as the command, and dispatches to methods on 'a'. Unknown commands are
// reported back to the user. The loop exits on scanner EOF or when the
// user types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers log
// their own errors. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("vault %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: guardians, setguardians, recover, approve, status, requests,")
				printlnFn("  balance, fee, transfer, withdraw, (t)ransactions, deposit, utxos, pending, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "guardians":
			_ = a.Guardians(ctx)

		case "setguardians":
			_ = a.SetGuardians(ctx)

		case "recover":
			_ = a.Recover(ctx)

		case "approve":
			_ = a.Approve(ctx)

		case "status":
			_ = a.Status(ctx)

		case "requests":
			_ = a.Requests(ctx)

		case "balance":
			_ = a.Balance(ctx)

		case "fee":
			_ = a.Fee(ctx)

		case "transfer":
			_ = a.Transfer(ctx)

		case "withdraw":
			_ = a.Withdraw(ctx)

		case "t", "transactions":
			_ = a.Transactions(ctx)

		case "deposit":
			_ = a.DepositAddress(ctx)

		case "utxos":
			_ = a.Utxos(ctx)

		case "pending":
			_ = a.PendingUtxos(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// Run starts the interactive loop on stdin.
func (a *App) Run(ctx context.Context, scanner *bufio.Scanner) {
	printlnFn("Guardian Vault CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, scanner)
}
