package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Guardians prints the caller's own guardian configuration.
func (a *App) Guardians(ctx context.Context) error {
	set, err := a.api.GetGuardians(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	printGuardianSet(set.Guardians, set.Quorum)
	return nil
}

// SetGuardians prompts for a comma-separated guardian list and a quorum
// and replaces the caller's configuration.
func (a *App) SetGuardians(ctx context.Context) error {
	raw, err := getSimpleText(a.reader, "Enter guardian principals (comma-separated)", os.Stdout)
	if err != nil {
		return err
	}
	var guardians []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			guardians = append(guardians, g)
		}
	}

	rawQuorum, err := getSimpleText(a.reader, "Enter quorum", os.Stdout)
	if err != nil {
		return err
	}
	quorum, err := strconv.ParseUint(rawQuorum, 10, 32)
	if err != nil {
		log.Printf("Invalid quorum: %s", err.Error())
		return err
	}

	set, err := a.api.SetGuardians(ctx, guardians, uint32(quorum))
	if err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Println("Guardians updated.")
	printGuardianSet(set.Guardians, set.Quorum)
	return nil
}

// Recover opens a recovery request on another principal's vault. The
// caller must be one of that vault's guardians.
func (a *App) Recover(ctx context.Context) error {
	owner, err := getSimpleText(a.reader, "Enter vault owner principal", os.Stdout)
	if err != nil {
		return err
	}
	newOwner, err := getSimpleText(a.reader, "Enter proposed new owner principal", os.Stdout)
	if err != nil {
		return err
	}

	id, err := a.api.RequestRecovery(ctx, owner, newOwner)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Printf("Recovery request opened, id %d\n", id)
	return nil
}

// Approve adds the caller's approval to a recovery request.
func (a *App) Approve(ctx context.Context) error {
	owner, err := getSimpleText(a.reader, "Enter vault owner principal", os.Stdout)
	if err != nil {
		return err
	}
	id, err := a.promptRequestID()
	if err != nil {
		return err
	}

	finalized, err := a.api.ApproveRecovery(ctx, owner, id)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	if finalized {
		fmt.Println("Quorum reached, vault ownership transferred.")
	} else {
		fmt.Println("Approval recorded.")
	}
	return nil
}

// Status prints one recovery request of a vault.
func (a *App) Status(ctx context.Context) error {
	owner, err := getSimpleText(a.reader, "Enter vault owner principal", os.Stdout)
	if err != nil {
		return err
	}
	id, err := a.promptRequestID()
	if err != nil {
		return err
	}

	req, err := a.api.RecoveryStatus(ctx, owner, id)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Printf("Request %d: state=%s new_owner=%s approvals=%d (%s)\n",
		req.ID, req.State, req.RequestedOwner, len(req.Approvals), strings.Join(req.Approvals, ", "))
	return nil
}

// Requests lists all recovery requests of a vault.
func (a *App) Requests(ctx context.Context) error {
	owner, err := getSimpleText(a.reader, "Enter vault owner principal", os.Stdout)
	if err != nil {
		return err
	}

	reqs, err := a.api.RecoveryRequests(ctx, owner)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	if len(reqs) == 0 {
		fmt.Println("No recovery requests.")
		return nil
	}
	for _, req := range reqs {
		fmt.Printf("%d\t%s\t%s\tapprovals=%d\n", req.ID, req.State, req.RequestedOwner, len(req.Approvals))
	}
	return nil
}

func (a *App) promptRequestID() (uint64, error) {
	raw, err := getSimpleText(a.reader, "Enter request id", os.Stdout)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		log.Printf("Invalid request id: %s", err.Error())
		return 0, err
	}
	return id, nil
}

func printGuardianSet(guardians []string, quorum uint32) {
	fmt.Printf("Quorum: %d of %d\n", quorum, len(guardians))
	for _, g := range guardians {
		fmt.Println("  " + g)
	}
}
