package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/tier"
)

// Account administration tools operate directly on the account store.
// They are not dispatched actions: creating an account or changing its
// tier is operator work, outside the quota-gated action set.

// AccountCreateTool handles the account_create MCP tool.
type AccountCreateTool struct {
	accounts *account.Store
	tiers    *tier.Catalog
}

// NewAccountCreateTool creates an AccountCreateTool.
func NewAccountCreateTool(accounts *account.Store, tiers *tier.Catalog) *AccountCreateTool {
	return &AccountCreateTool{accounts: accounts, tiers: tiers}
}

// Definition returns the MCP tool definition for account_create.
func (t *AccountCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("account_create",
		mcp.WithDescription(
			"Create a new account on a subscription tier.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Account display name"),
		),
		mcp.WithString("tier",
			mcp.Description("Subscription tier id (default: free)"),
		),
	)
}

// Handle processes the account_create tool call.
func (t *AccountCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	tierID := req.GetString("tier", tier.TierFree)
	if !t.tiers.Has(tierID) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown tier %q; known tiers: %v", tierID, t.tiers.TierIDs())), nil
	}

	acct, err := t.accounts.Create(ctx, name, tierID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create account: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Account created: %s (tier: %s)", acct.ID, acct.Tier)), nil
}

// AccountTierTool handles the account_set_tier MCP tool.
type AccountTierTool struct {
	accounts *account.Store
	tiers    *tier.Catalog
}

// NewAccountTierTool creates an AccountTierTool.
func NewAccountTierTool(accounts *account.Store, tiers *tier.Catalog) *AccountTierTool {
	return &AccountTierTool{accounts: accounts, tiers: tiers}
}

// Definition returns the MCP tool definition for account_set_tier.
func (t *AccountTierTool) Definition() mcp.Tool {
	return mcp.NewTool("account_set_tier",
		mcp.WithDescription(
			"Move an account to a different subscription tier. Takes effect on the next action.",
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account to move"),
		),
		mcp.WithString("tier",
			mcp.Required(),
			mcp.Description("Target tier id"),
		),
	)
}

// Handle processes the account_set_tier tool call.
func (t *AccountTierTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := req.GetString("account_id", "")
	if accountID == "" {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}
	tierID := req.GetString("tier", "")
	if !t.tiers.Has(tierID) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown tier %q; known tiers: %v", tierID, t.tiers.TierIDs())), nil
	}

	if err := t.accounts.SetTier(ctx, accountID, tierID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set tier: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Account %s moved to tier %s", accountID, tierID)), nil
}

// AccountTestingModeTool handles the account_testing_mode MCP tool.
type AccountTestingModeTool struct {
	accounts *account.Store
}

// NewAccountTestingModeTool creates an AccountTestingModeTool.
func NewAccountTestingModeTool(accounts *account.Store) *AccountTestingModeTool {
	return &AccountTestingModeTool{accounts: accounts}
}

// Definition returns the MCP tool definition for account_testing_mode.
func (t *AccountTestingModeTool) Definition() mcp.Tool {
	return mcp.NewTool("account_testing_mode",
		mcp.WithDescription(
			"Enable or disable testing mode for one account. A testing-mode account bypasses every quota check; usage is still recorded.",
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account to flag"),
		),
		mcp.WithBoolean("enabled",
			mcp.Required(),
			mcp.Description("true to enable the bypass, false to restore normal gating"),
		),
	)
}

// Handle processes the account_testing_mode tool call.
func (t *AccountTestingModeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := req.GetString("account_id", "")
	if accountID == "" {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}
	enabled := boolArg(req, "enabled", false)

	if err := t.accounts.SetTestingMode(ctx, accountID, enabled); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set testing mode: %v", err)), nil
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Testing mode %s for account %s", state, accountID)), nil
}
