// @title Art Contest Voting API
// @version 1.0
// @description Pairwise art contest voting with daily vote quotas

// @securityDefinitions.apikey AdminSession
// @in cookie
// @name art_contest
package main

import (
	_ "github.com/alex-pricope/art-contest-voting/docs"

	"github.com/alex-pricope/art-contest-voting/cmd"
)

func main() {
	cmd.Execute()
}
