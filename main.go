package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"aide/config"
	"aide/engine"
	"aide/model"
	"aide/prompt"
	"aide/storage"
	"aide/tools"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

const defaultSystemPrompt = "You are a personal coaching assistant. You help the user manage " +
	"their schedule, reminders, and goals. Use the provided tools to act on the user's " +
	"calendar and reminders, and update your memory of the user when you learn something " +
	"durable about them. Be concise and concrete."

const autoMessagePrompt = "(The user just returned to the app after being away. Open the " +
	"conversation with a short, relevant check-in based on what you know about them.)"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := config.InitLogger(cfg.DataDir())

	creds := config.NewCredentialStore(cfg.DataDir(), nil)
	if err := creds.Load(); err != nil {
		fmt.Printf("Failed to load credentials: %v\n", err)
		os.Exit(1)
	}
	if !creds.HasCredentials() {
		fmt.Println("No API key configured. Set AIDE_API_KEY or write one with /setkey after launch.")
	}

	store, err := storage.NewStore(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to open conversation store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	taskBook, err := storage.NewTaskBook(store)
	if err != nil {
		fmt.Printf("Failed to open task book: %v\n", err)
		os.Exit(1)
	}
	memory := storage.NewMemoryFile(cfg.DataDir())

	metrics := &engine.CacheMetrics{}
	if err := metrics.Load(store); err != nil {
		logger.Warn("failed to load cache metrics", "error", err)
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	tracker := prompt.NewSectionTracker()
	builder := prompt.NewBuilder(cfg.Model, cfg.MaxTokens, tracker)
	dispatcher := tools.NewDispatcher(taskBook, memory, cfg.ToolTimeout(), logger)
	client := engine.NewClient(cfg.BaseURL, creds.APIKey())
	printer := newConsolePrinter()

	orch, err := engine.New(client, builder, tracker, dispatcher, store, metrics,
		&engine.LocalContext{Memory: memory, Tasks: taskBook}, printer,
		engine.Options{
			SystemPrompt: systemPrompt,
			Tools:        tools.Schemas(),
			Watchdog:     cfg.Watchdog(),
			Logger:       logger,
		})
	if err != nil {
		fmt.Printf("Failed to start engine: %v\n", err)
		os.Exit(1)
	}
	defer orch.Close()

	scheduler := engine.NewAutoScheduler(store,
		func() bool { return cfg.AutoMessagesEnabled },
		creds.HasCredentials,
		cfg.IdleThreshold(), logger)

	for _, msg := range orch.Messages() {
		printer.printHistory(msg)
	}

	// Launching counts as coming to the foreground.
	if scheduler.ShouldSendOnForeground() {
		orch.SendAutomatic(autoMessagePrompt)
	}

	fmt.Printf("aide %s (%s), /help for commands\n", Version, License)
	repl(orch, scheduler, metrics, store, creds)
}

func repl(orch *engine.Orchestrator, scheduler *engine.AutoScheduler, metrics *engine.CacheMetrics, store *storage.Store, creds *config.CredentialStore) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return

		case line == "/help":
			fmt.Println("/clear /abort /stats /search <query> /setkey <key> /quit")

		case line == "/abort":
			orch.Abort()

		case line == "/clear":
			if err := orch.ClearConversation(); err != nil {
				fmt.Printf("clear failed: %v\n", err)
				continue
			}
			if scheduler.ShouldSendAfterClear() {
				orch.SendAutomatic(autoMessagePrompt)
			}

		case line == "/stats":
			snap := metrics.Snapshot()
			fmt.Printf("requests: %d  cache hits: %d  hit rate: %.0f%%  cache effectiveness: %.0f%%\n",
				snap.Requests, snap.CacheHits, snap.HitRate*100, snap.Effectiveness*100)

		case strings.HasPrefix(line, "/search "):
			matches, err := store.SearchTranscript(strings.TrimPrefix(line, "/search "))
			if err != nil {
				fmt.Printf("search failed: %v\n", err)
				continue
			}
			for _, m := range matches {
				fmt.Printf("[%s] %s\n", m.Role, m.Preview)
			}
			if len(matches) == 0 {
				fmt.Println("no matches")
			}

		case strings.HasPrefix(line, "/setkey "):
			if err := creds.Save(strings.TrimPrefix(line, "/setkey ")); err != nil {
				fmt.Printf("failed to save key: %v\n", err)
			}

		case strings.HasPrefix(line, "/"):
			fmt.Printf("unknown command: %s\n", line)

		default:
			orch.Send(line)
		}
	}
}

// consolePrinter renders engine updates to stdout. Assistant text prints as
// it streams; tool operations print their terminal state.
type consolePrinter struct {
	mu      sync.Mutex
	printed map[string]int
}

func newConsolePrinter() *consolePrinter {
	return &consolePrinter{printed: make(map[string]int)}
}

func (p *consolePrinter) printHistory(msg model.Message) {
	fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
}

func (p *consolePrinter) MessageUpdated(msg model.Message) {
	if msg.Role != model.RoleAssistant {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.printed[msg.ID]
	if len(msg.Content) > n {
		fmt.Print(msg.Content[n:])
		p.printed[msg.ID] = len(msg.Content)
	}
	if msg.Complete {
		fmt.Println()
		delete(p.printed, msg.ID)
	}
}

func (p *consolePrinter) OperationUpdated(status model.OperationStatus) {
	if status.State == model.OperationInProgress {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if status.Detail != "" {
		fmt.Printf("\n[%s: %s: %s]\n", status.Kind, status.State, status.Detail)
		return
	}
	fmt.Printf("\n[%s: %s]\n", status.Kind, status.State)
}

func (p *consolePrinter) StateChanged(state engine.ExchangeState) {
	if state == engine.StateFailed {
		p.mu.Lock()
		fmt.Println("\n[exchange failed]")
		p.mu.Unlock()
	}
}

func (p *consolePrinter) ConversationCleared() {
	p.mu.Lock()
	fmt.Println("[conversation cleared]")
	p.mu.Unlock()
}
