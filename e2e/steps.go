package e2e

import (
	"github.com/cucumber/godog"

	"ballotledger/e2e/steps/common"
	"ballotledger/e2e/steps/election"
	"ballotledger/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	election.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
