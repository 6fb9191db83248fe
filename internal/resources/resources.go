// Package resources implements MCP resource handlers.
//
// Resources provide read-only data that the host can consume for
// context. They use URI-based addressing (atelier://...) following MCP
// conventions. Reading a resource is never a dispatched action: it is
// not gated and not counted.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/ledger"
	"github.com/atelierhq/atelier/internal/tier"
)

// Handler manages the usage resource endpoints.
type Handler struct {
	accounts account.Source
	usage    *ledger.Ledger
	tiers    *tier.Catalog
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(accounts account.Source, usage *ledger.Ledger, tiers *tier.Catalog) *Handler {
	return &Handler{accounts: accounts, usage: usage, tiers: tiers}
}

// UsageResource returns the MCP resource template for per-account
// usage. The {id} segment is the account id.
func (h *Handler) UsageResource() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		"atelier://accounts/{id}/usage",
		"Account Usage",
		mcp.WithTemplateDescription("Current usage counters and tier limits for one account"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// usageReport is the JSON shape served by the usage resource.
type usageReport struct {
	AccountID   string          `json:"account_id"`
	Tier        string          `json:"tier"`
	TestingMode bool            `json:"testing_mode,omitempty"`
	PeriodReset string          `json:"period_reset_at"`
	Dimensions  map[string]dims `json:"dimensions"`
}

type dims struct {
	Used  int64  `json:"used"`
	Limit string `json:"limit"`
}

// HandleUsage serves the usage report for the account named in the URI.
func (h *Handler) HandleUsage(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	accountID, err := accountIDFromURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	acct, err := h.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("resources: loading account: %w", err)
	}
	limits, err := h.tiers.LimitsFor(acct.Tier)
	if err != nil {
		return nil, fmt.Errorf("resources: resolving tier: %w", err)
	}
	counters, err := h.usage.Read(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("resources: reading usage: %w", err)
	}

	report := usageReport{
		AccountID:   acct.ID,
		Tier:        acct.Tier,
		TestingMode: acct.TestingMode,
		PeriodReset: counters.PeriodResetAt.Format(time.RFC3339),
		Dimensions: map[string]dims{
			"projects":         {Used: counters.ProjectsOwned, Limit: limits.MaxProjects.String()},
			"actions_monthly":  {Used: counters.ActionsThisPeriod, Limit: limits.MaxActionsPerMonth.String()},
			"storage_bytes":    {Used: counters.StorageBytesUsed, Limit: limits.MaxStorageBytes.String()},
			"max_collab_per_p": {Used: maxCollaborators(counters), Limit: limits.MaxCollaboratorsPerProject.String()},
		},
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("resources: marshaling usage report: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// maxCollaborators reports the largest collaborator count across the
// account's projects, since the limit applies per project.
func maxCollaborators(c ledger.Counters) int64 {
	var top int64
	for _, n := range c.CollaboratorsPerProject {
		if n > top {
			top = n
		}
	}
	return top
}

// accountIDFromURI extracts the account id from
// atelier://accounts/{id}/usage.
func accountIDFromURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "atelier://accounts/")
	if !ok {
		return "", fmt.Errorf("resources: malformed usage URI %q", uri)
	}
	id, ok := strings.CutSuffix(rest, "/usage")
	if !ok || id == "" {
		return "", fmt.Errorf("resources: malformed usage URI %q", uri)
	}
	return id, nil
}
