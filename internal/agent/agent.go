package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/calendar-agent/internal/config"
	"github.com/comigor/calendar-agent/internal/llm"
	"github.com/comigor/calendar-agent/internal/logger"
	"github.com/comigor/calendar-agent/internal/session"
	"github.com/comigor/calendar-agent/pkg/tools"
)

var (
	// ErrInvalidInput is returned for a blank user message.
	ErrInvalidInput = errors.New("message is required")
	// ErrTimeout is returned when the model does not answer within the configured timeout.
	ErrTimeout = errors.New("model request timed out")
	// ErrToolLoopExceeded is returned when the model keeps requesting tools past the round limit.
	ErrToolLoopExceeded = errors.New("exceeded maximum tool rounds")
)

const (
	defaultTimeout       = 30 * time.Second
	defaultMaxToolRounds = 10
)

// FSM states
type turnState string

const (
	StateCallModel    turnState = "CallModel"
	StateExecuteTools turnState = "ExecuteTools"
	StateDone         turnState = "Done"
	StateFailed       turnState = "Failed"
)

// FSM triggers
type turnTrigger string

const (
	TriggerToolsRequested turnTrigger = "ToolsRequested"
	TriggerAnswered       turnTrigger = "Answered"
	TriggerToolsExecuted  turnTrigger = "ToolsExecuted"
	TriggerFailed         turnTrigger = "Failed"
)

const defaultSystemPrompt = `Si asistent pre správu Google Kalendára, počasia a vyhľadávania informácií. Pomáhaš používateľovi:
- Zobraziť udalosti z kalendára
- Pridávať nové udalosti
- Vytvárať kalendáre pre zamestnancov z Google Sheets tabuľky
- Plánovať zákazky do kalendárov zamestnancov
- Odpovedať na otázky o kalendári
- Poskytovať informácie o počasí
- Vyhľadávať informácie na internete

**HLAVNÉ PRAVIDLO - ONE-SHOT funkcie:**

**Vypísanie udalostí:**
Keď používateľ pýta "vypiš udalosti na tlačiar" / "udalosti pre grafika":
POUŽI: get_calendar_events_by_name({calendarName: "tlačiar"})
NEPOUŽÍVAJ: list_calendars() → list_events()

**Pridávanie udalostí:**
Keď používateľ povie "pridaj udalosť na lepiča" / "polep auta pre grafika":
POUŽI: add_event_by_calendar_name({calendarName: "lepič", summary: "...", startTime: "...", endTime: "...", location: "..."})
NEPOUŽÍVAJ: list_calendars() → add_event()

**Počasie:**
Keď používateľ pýta "aké bude počasie", "bude pršať", "môžem montovať":
POUŽI: get_weather() alebo get_weather_for_date({date: "monday"})
- Ak pýta na konkrétny deň → get_weather_for_date
- Ak pýta všeobecne → get_weather
- Vždy spomeň odporúčanie pre montáž (suitable_for_installation)

**Web Search:**
Keď používateľ pýta "ako...", "najlepšie praktiky...", "návod na...", "poraď mi...":
POUŽI: web_search({query: "best practices car wrap installation"})
- Odpoveď MUSÍ zahŕňať zdroj (URL)

**Spracovanie času:**
- Ak používateľ povie "1,2 hodiny", vypočítaj: startTime = dnes alebo zadaný dátum, endTime = startTime + 1.2h
- Formát: ISO 8601 s timezone (napr. 2025-10-26T10:00:00+02:00)
- Ak nie je uvedený čas, **opýtaj sa!**

**KEĎ SI NEISTÝ:**
- Chýba čas alebo dátum? → **Opýtaj sa!**
- Nevieš, ktorý kalendár? → **Opýtaj sa!**
- **NIKDY nevymýšľaj údaje!**

**Formátovanie:**
- Názov kalendára vždy uveď
- Odrážky
- Slovenský formát dátumu
- Pri web search vždy uveď zdroj (URL)

Komunikuj v slovenčine priateľsky.`

// ToolCallRecord is one tool invocation as requested by the model. Args holds
// the decoded arguments, or the raw string when they were not valid JSON.
type ToolCallRecord struct {
	Name string `json:"name"`
	Args any    `json:"args"`
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	Reply     string           `json:"response"`
	ToolCalls []ToolCallRecord `json:"functionCalls"`
}

// Agent is the main agent struct
type Agent struct {
	llmClient llm.Client
	cfg       config.LLMConfig
	tools     *tools.ToolManager
	store     session.Store
	locks     session.Locker
	prompts   []string
	now       func() time.Time
}

type Option func(*Agent)

// WithPrompts appends extra system prompt fragments, e.g. ones published by MCP servers.
func WithPrompts(prompts ...string) Option {
	return func(a *Agent) { a.prompts = append(a.prompts, prompts...) }
}

// WithClock sets the clock used for the date in the system prompt.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// New creates a new agent.
func New(llmClient llm.Client, cfg config.LLMConfig, tm *tools.ToolManager, store session.Store, opts ...Option) *Agent {
	a := &Agent{
		llmClient: llmClient,
		cfg:       cfg,
		tools:     tm,
		store:     store,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SystemPrompt builds the instructions that open a fresh session.
func (a *Agent) SystemPrompt() string {
	var b strings.Builder
	if a.cfg.SystemPrompt != "" {
		b.WriteString(a.cfg.SystemPrompt)
	} else {
		b.WriteString(defaultSystemPrompt)
	}
	for _, p := range a.prompts {
		b.WriteString("\n\n")
		b.WriteString(p)
	}
	now := a.now()
	fmt.Fprintf(&b, "\nDnešný dátum je %d. %d. %d.", now.Day(), now.Month(), now.Year())
	return b.String()
}

func (a *Agent) timeout() time.Duration {
	if a.cfg.Timeout > 0 {
		return a.cfg.Timeout
	}
	return defaultTimeout
}

func (a *Agent) maxToolRounds() int {
	if a.cfg.MaxToolRounds > 0 {
		return a.cfg.MaxToolRounds
	}
	return defaultMaxToolRounds
}

// turn is the working state of one HandleTurn call. Nothing in it reaches the
// session store unless the turn ends in StateDone.
type turn struct {
	messages []openai.ChatCompletionMessage
	pending  []openai.ToolCall
	calls    []ToolCallRecord
	reply    string
	rounds   int
	err      error
}

// HandleTurn appends text to the session's conversation and runs the model,
// executing every tool it asks for, until it answers in plain text. Turns of
// the same session run one at a time.
func (a *Agent) HandleTurn(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}

	unlock, err := a.locks.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	history, ok, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		history = []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: a.SystemPrompt()}}
	}

	t := &turn{
		messages: append(history, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}),
		calls:    []ToolCallRecord{},
	}
	if err := a.run(ctx, t); err != nil {
		logger.L.Error("turn failed", "session", sessionID, "error", err)
		return nil, err
	}

	if err := a.store.Set(ctx, sessionID, t.messages); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	logger.L.Info("turn completed", "session", sessionID, "tool_calls", len(t.calls), "rounds", t.rounds)
	return &TurnResult{Reply: t.reply, ToolCalls: t.calls}, nil
}

// Reset forgets the session's conversation.
func (a *Agent) Reset(ctx context.Context, sessionID string) error {
	unlock, err := a.locks.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()
	return a.store.Delete(ctx, sessionID)
}

func newTurnMachine() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateCallModel)

	fsm.Configure(StateCallModel).
		Permit(TriggerToolsRequested, StateExecuteTools).
		Permit(TriggerAnswered, StateDone).
		Permit(TriggerFailed, StateFailed)

	fsm.Configure(StateExecuteTools).
		Permit(TriggerToolsExecuted, StateCallModel)

	fsm.OnTransitioned(func(_ context.Context, tr stateless.Transition) {
		logger.L.Debug("turn transition", "from", tr.Source, "to", tr.Destination, "trigger", tr.Trigger)
	})
	return fsm
}

// run drives the state machine until it reaches Done or Failed. Each state's
// work happens here rather than in entry actions so that triggers are only
// fired from the loop.
func (a *Agent) run(ctx context.Context, t *turn) error {
	fsm := newTurnMachine()
	for {
		state, err := fsm.State(ctx)
		if err != nil {
			return fmt.Errorf("turn state: %w", err)
		}

		var trigger turnTrigger
		switch state {
		case StateCallModel:
			trigger = a.callModel(ctx, t)
		case StateExecuteTools:
			trigger = a.executeTools(ctx, t)
		case StateDone:
			return nil
		case StateFailed:
			return t.err
		default:
			return fmt.Errorf("turn ended in unexpected state %v", state)
		}

		if err := fsm.FireCtx(ctx, trigger); err != nil {
			return fmt.Errorf("turn state: %w", err)
		}
	}
}

func (a *Agent) callModel(ctx context.Context, t *turn) turnTrigger {
	req := openai.ChatCompletionRequest{
		Model:    a.cfg.Model,
		Messages: t.messages,
	}
	if defs := a.tools.Definitions(); len(defs) > 0 {
		req.Tools = defs
		req.ToolChoice = "auto"
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	resp, err := a.llmClient.CreateChatCompletion(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			t.err = fmt.Errorf("%w: %w", ErrTimeout, err)
		} else {
			t.err = fmt.Errorf("chat completion: %w", err)
		}
		return TriggerFailed
	}
	if len(resp.Choices) == 0 {
		t.err = errors.New("chat completion: no choices returned")
		return TriggerFailed
	}

	msg := resp.Choices[0].Message
	msg.Role = openai.ChatMessageRoleAssistant

	if len(msg.ToolCalls) == 0 {
		t.messages = append(t.messages, msg)
		t.reply = msg.Content
		return TriggerAnswered
	}
	if t.rounds >= a.maxToolRounds() {
		t.err = fmt.Errorf("%w (%d)", ErrToolLoopExceeded, a.maxToolRounds())
		return TriggerFailed
	}
	t.messages = append(t.messages, msg)
	t.pending = msg.ToolCalls
	return TriggerToolsRequested
}

// executeTools answers every pending tool call in order. Tool failures are
// payloads, so this state cannot fail.
func (a *Agent) executeTools(ctx context.Context, t *turn) turnTrigger {
	t.rounds++
	for _, tc := range t.pending {
		payload := a.tools.Call(ctx, tc.Function.Name, tc.Function.Arguments)
		t.messages = append(t.messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    tools.Encode(payload),
			ToolCallID: tc.ID,
			Name:       tc.Function.Name,
		})
		t.calls = append(t.calls, ToolCallRecord{Name: tc.Function.Name, Args: parseArgs(tc.Function.Arguments)})
	}
	t.pending = nil
	return TriggerToolsExecuted
}

func parseArgs(raw string) any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return raw
	}
	return args
}
