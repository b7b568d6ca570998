// Package ai is the back-office assistant: a Gemini chat that may call
// read-only tools over the active business.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// maxToolRounds bounds how many times the model may chain tool calls.
const maxToolRounds = 5

var ErrNotConfigured = apperr.New(apperr.KindRemote, "assistant is not configured")

type Agent struct {
	apiKey string
	model  string
	tools  *Tools
	log    *zap.Logger
}

func NewAgent(apiKey, model string, tools *Tools, log *zap.Logger) *Agent {
	return &Agent{apiKey: apiKey, model: model, tools: tools, log: log}
}

func (a *Agent) systemPrompt(actor models.Actor) string {
	return fmt.Sprintf(`Today is %s. You are the back-office assistant of a retail shop. You are talking to %s (%s).

RULES:
1. READ: For PRICE, COST, STOCK or DETAILS of a product, call 'check_inventory' and read the result. Never ask for an id.
2. SALES: For sales, revenue or commission, call 'get_sales_report'.
3. APPROVALS: For cash counts, deliveries, stock checks or expenses waiting on someone, call 'list_pending_approvals'.
4. BANK: For account balances, call 'bank_balances'.
5. You cannot change anything. If asked to, explain which screen to use.`,
		time.Now().Format("2006-01-02"), actor.Name, actor.Role)
}

// Ask sends one message and resolves tool calls until the model answers in text.
func (a *Agent) Ask(ctx context.Context, actor models.Actor, message string) (string, error) {
	if a.apiKey == "" {
		return "", ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", apperr.Remote(err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(a.systemPrompt(actor)))
	model.Tools = a.tools.Declarations()

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", apperr.Remote(err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}
		replies := make([]genai.Part, 0, len(calls))
		for _, fc := range calls {
			replies = append(replies, a.answer(ctx, actor, fc))
		}
		resp, err = session.SendMessage(ctx, replies...)
		if err != nil {
			return "", apperr.Remote(err)
		}
	}
	return printResponse(resp), nil
}

// answer runs a tool and packs its result the way the model reads it back.
func (a *Agent) answer(ctx context.Context, actor models.Actor, fc genai.FunctionCall) genai.FunctionResponse {
	out, err := a.tools.Call(ctx, actor, fc.Name, fc.Args)
	if err != nil {
		a.log.Warn("assistant tool failed", zap.String("tool", fc.Name), zap.String("actor", actor.UserID), zap.Error(err))
		return genai.FunctionResponse{Name: fc.Name, Response: map[string]any{"error": apperr.Message(err)}}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return genai.FunctionResponse{Name: fc.Name, Response: map[string]any{"error": err.Error()}}
	}
	return genai.FunctionResponse{Name: fc.Name, Response: map[string]any{"result": string(data)}}
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

func printResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I could not find an answer."
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I could not find an answer."
}
