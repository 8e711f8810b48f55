package main

import (
	"context"
	"fmt"

	"github.com/trezcool/creche/core/lifecycle"
)

// setStatus changes the status of a daycare like a platform admin would through the API.
// The daycare's owner & managers get notified.
func (cli *commandLine) setStatus(daycareID string, target lifecycle.Status) error {
	rec, err := cli.recSvc.ChangeStatus(context.Background(), daycareID, lifecycle.KindDaycare, daycareID, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "daycare %s is %s\n", rec.GetID(), rec.GetStatus())
	return nil
}
