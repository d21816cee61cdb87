package main

import (
	"context"
	"fmt"
)

// auditGuardians reports pairs of guardian identities with near-identical
// display names but different dedup keys. Each pair is printed once.
func (cli *commandLine) auditGuardians() error {
	ctx := context.Background()
	all, err := cli.guardianRepo.QueryAllGuardians(ctx)
	if err != nil {
		return err
	}

	var pairs int
	for _, g := range all {
		matches, err := cli.guardianSvc.SimilarGuardians(ctx, g)
		if err != nil {
			return err
		}
		for _, match := range matches {
			if match.Guardian.ID <= g.ID {
				continue
			}
			pairs++
			fmt.Fprintf(cli.out, "%.0f%%  %q (%s)  ~  %q (%s)\n",
				match.Ratio*100, g.DisplayName, g.ID, match.Guardian.DisplayName, match.Guardian.ID)
		}
	}
	fmt.Fprintf(cli.out, "%d likely duplicate pair(s) found out of %d identities\n", pairs, len(all))
	return nil
}
