package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/approval"
	"fintab-pos/internal/models"
	"fintab-pos/internal/reports"
	"fintab-pos/internal/store"

	"github.com/google/generative-ai-go/genai"
)

var (
	ErrUnknownTool = apperr.New(apperr.KindValidation, "unknown assistant tool")
	ErrToolDenied  = apperr.New(apperr.KindAuthorization, "you are not allowed to see this")
	ErrBadDate     = apperr.New(apperr.KindValidation, "dates must be in YYYY-MM-DD format")
)

// Tools answers the assistant's function calls. Every tool is read-only and
// scoped to the actor's business.
type Tools struct {
	repo    store.Repository
	reports *reports.Service
}

func NewTools(repo store.Repository, rep *reports.Service) *Tools {
	return &Tools{repo: repo, reports: rep}
}

func (t *Tools) Declarations() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "check_inventory",
				Description: "List products with their id, category, price, cost, stock and variants. Use this to find ANY product detail.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {Type: genai.TypeString, Description: "Optional name filter"},
					},
				},
			},
			{
				Name:        "get_sales_report",
				Description: "Revenue, tax, commission and order count of finalized sales for a date range.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
						"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
					},
					Required: []string{"start_date", "end_date"},
				},
			},
			{
				Name:        "list_pending_approvals",
				Description: "Approval records (cash counts, goods receiving, inventory checks, expenses) still waiting for a signature.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"kind": {Type: genai.TypeString, Description: "Optional kind: cash_count, goods_receiving, inventory_check or expense"},
					},
				},
			},
			{
				Name:        "bank_balances",
				Description: "Current balance of every bank account.",
			},
		},
	}}
}

type inventoryRow struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    string   `json:"price"`
	Cost     string   `json:"cost"`
	Stock    int      `json:"stock"`
	Variants []string `json:"variants,omitempty"`
}

// Call runs one tool for the actor.
func (t *Tools) Call(ctx context.Context, actor models.Actor, name string, args map[string]any) (any, error) {
	switch name {
	case "check_inventory":
		query, _ := args["query"].(string)
		products, err := t.repo.ListProducts(ctx, actor.BusinessID, store.ProductFilter{Query: query})
		if err != nil {
			return nil, err
		}
		rows := make([]inventoryRow, 0, len(products))
		for _, p := range products {
			row := inventoryRow{
				ID:       p.ID,
				Name:     p.Name,
				Category: p.Category,
				Price:    p.Price.StringFixed(2),
				Cost:     p.CostPrice.StringFixed(2),
				Stock:    p.StockQuantity,
			}
			for _, v := range p.Variants {
				attrs := make([]string, len(v.Attributes))
				for i, a := range v.Attributes {
					attrs[i] = a.Value
				}
				row.Variants = append(row.Variants, fmt.Sprintf("%s: price %s, stock %d", strings.Join(attrs, "/"), v.Price.StringFixed(2), v.StockQuantity))
			}
			rows = append(rows, row)
		}
		return rows, nil

	case "get_sales_report":
		if !actor.Can(models.CapViewReports) {
			return nil, ErrToolDenied
		}
		start, err1 := time.Parse("2006-01-02", fmt.Sprint(args["start_date"]))
		end, err2 := time.Parse("2006-01-02", fmt.Sprint(args["end_date"]))
		if err1 != nil || err2 != nil {
			return nil, ErrBadDate
		}
		end = end.Add(24*time.Hour - time.Second)
		sum, err := t.reports.Sales(ctx, actor.BusinessID, start, end)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"revenue":     sum.TotalRevenue,
			"tax":         sum.TotalTax,
			"commission":  sum.TotalCommission,
			"sales_count": sum.TotalOrders,
		}, nil

	case "list_pending_approvals":
		kind, _ := args["kind"].(string)
		records, err := t.repo.ListApprovals(ctx, actor.BusinessID, kind, "")
		if err != nil {
			return nil, err
		}
		pending := []map[string]any{}
		for _, r := range records {
			if isOutcome(r.Status) {
				continue
			}
			pending = append(pending, map[string]any{
				"id":         r.ID,
				"kind":       r.Kind,
				"status":     r.Status,
				"created_at": r.CreatedAt.Format(time.RFC3339),
			})
		}
		return pending, nil

	case "bank_balances":
		if !actor.Can(models.CapManageBank) {
			return nil, ErrToolDenied
		}
		accounts, err := t.repo.ListAccounts(ctx, actor.BusinessID)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(accounts))
		for i, a := range accounts {
			out[i] = map[string]any{"name": a.Name, "bank": a.BankName, "balance": a.Balance.StringFixed(2)}
		}
		return out, nil
	}
	return nil, ErrUnknownTool
}

func isOutcome(status string) bool {
	switch status {
	case approval.OutcomeAuthorized, approval.OutcomeAccepted, approval.OutcomeRejected, approval.OutcomeFlagged:
		return true
	}
	return false
}
