package cli

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/guardianvault/vaultd/internal/client/client"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for a principal and the identity secret and opens a
// session on the server. On success the principal is remembered and
// shown in the prompt.
func (a *App) Login(ctx context.Context) error {
	principal, err := getSimpleText(a.reader, "Enter principal", os.Stdout)
	if err != nil {
		return err
	}

	secret, err := getPassword(os.Stdout, "Enter identity secret")
	if err != nil {
		return err
	}

	if err := a.api.Login(ctx, principal, string(secret)); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			log.Printf("Server unavailable: %s", err.Error())
		} else {
			log.Printf("Login unsuccessful: %s", err.Error())
		}
		return err
	}

	a.principal = principal
	log.Printf("Login successful")
	return nil
}
