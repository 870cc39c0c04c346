package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwellai/inkwell/internal/agent"
	"github.com/inkwellai/inkwell/internal/audit"
	"github.com/inkwellai/inkwell/internal/config"
	"github.com/inkwellai/inkwell/internal/confirm"
	"github.com/inkwellai/inkwell/internal/engine"
	"github.com/inkwellai/inkwell/internal/events"
	"github.com/inkwellai/inkwell/internal/provider"
	"github.com/inkwellai/inkwell/internal/provider/retry"
	"github.com/inkwellai/inkwell/internal/session"
	"github.com/inkwellai/inkwell/internal/toolserver"
	"github.com/inkwellai/inkwell/internal/tools"
	"github.com/inkwellai/inkwell/internal/trace"
	"github.com/inkwellai/inkwell/internal/vault"
)

var (
	chatMessage    string
	chatSessionKey string
	chatVaultPath  string
	chatYes        bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant about your vault",
	Run:   runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send one message and exit (default: interactive)")
	chatCmd.Flags().StringVarP(&chatSessionKey, "session", "s", "cli:default", "Session key")
	chatCmd.Flags().StringVar(&chatVaultPath, "vault", "", "Vault path (overrides config)")
	chatCmd.Flags().BoolVarP(&chatYes, "yes", "y", false, "Approve all tool confirmations without asking")
}

func runChat(cmd *cobra.Command, args []string) {
	printHeader("Inkwell")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if chatVaultPath != "" {
		cfg.Paths.Vault = chatVaultPath
	}

	store, err := vault.NewDirStore(cfg.Paths.Vault)
	if err != nil {
		fmt.Printf("Vault error: %v\n", err)
		os.Exit(1)
	}

	auditStore, err := audit.Open(cfg.AuditDBPath())
	if err != nil {
		fmt.Printf("Audit warning: %v (auditing disabled)\n", err)
		auditStore = nil
	} else {
		defer auditStore.Close()
	}

	registry := tools.NewRegistry()
	registerVaultTools(registry, store)

	for _, srv := range cfg.Servers {
		client := toolserver.NewClient(srv.URL, registry)
		if err := client.Connect(cmd.Context()); err != nil {
			fmt.Printf("Tool server %s unavailable: %v\n", srv.Name, err)
			continue
		}
		defer client.Close()
	}

	var tracer *trace.Publisher
	if cfg.Trace.Enabled {
		tracer, err = trace.NewPublisher(cfg.Trace.Brokers, cfg.Trace.Topic, cfg.Trace.AgentID)
		if err != nil {
			fmt.Printf("Trace warning: %v (tracing disabled)\n", err)
		} else {
			defer tracer.Close()
		}
	}

	stdin := bufio.NewReader(os.Stdin)
	var confirmer confirm.Confirmer
	if chatYes {
		confirmer = confirm.AutoApprove{}
	} else {
		var mgr *confirm.Manager
		mgr = confirm.NewManager(cfg.ConfirmTimeout(), func(req *confirm.Request) {
			color.Yellow("\n%s [y/N] ", req.Prompt)
			go func() {
				line, err := stdin.ReadString('\n')
				granted := err == nil && isAffirmative(line)
				mgr.Respond(req.ID, granted)
			}()
		})
		confirmer = mgr
	}

	var llm provider.LLMProvider = provider.NewOpenAIProvider(
		cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name)
	llm = retry.New(llm, retry.Options{
		MaxRetries:     cfg.Retry.MaxRetries,
		InitialBackoff: cfg.InitialBackoff(),
		OnStreamRestart: func(attempt int) {
			color.Yellow("\n[stream restarted, attempt %d — previous partial output discarded]\n", attempt)
		},
	})

	bus := events.NewBus()
	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()
	go bus.Dispatch(busCtx)
	bus.Subscribe(events.TypeToolStarted, func(e *events.Event) {
		color.Blue("  → %s", e.Tool)
	})
	bus.Subscribe(events.TypeNotice, func(e *events.Event) {
		color.Yellow("%s", e.Text)
	})

	sessions := session.NewManager(cfg.SessionsDir())
	sess := sessions.GetOrCreate(chatSessionKey)
	applyToolDefaults(sess, cfg)

	eng := engine.New(registry, confirmer, auditStore)
	builder := agent.NewContextBuilder(store, cfg.Model.SystemPrompt)
	orch := agent.New(llm, registry, eng, sessions, auditStore, bus, tracer, builder, agent.Options{
		Model:       cfg.Model.Name,
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
		MaxRounds:   cfg.Model.MaxRounds,
	})

	fmt.Printf("Model: %s  Vault: %s  Session: %s\n", cfg.Model.Name, cfg.Paths.Vault, chatSessionKey)

	if chatMessage != "" {
		runOneTurn(cmd.Context(), orch, sess, chatMessage, cfg.Model.Stream)
		return
	}

	fmt.Println("Type a message, or /quit to exit, /reset to clear the session.")
	for {
		fmt.Print(color.GreenString("> "))
		line, err := stdin.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return
		case line == "/reset":
			sess.Reset()
			sessions.Save(sess)
			fmt.Println("Session cleared.")
			continue
		}
		runOneTurn(cmd.Context(), orch, sess, line, cfg.Model.Stream)
	}
}

func runOneTurn(ctx context.Context, orch *agent.Orchestrator, sess *session.Session, text string, stream bool) {
	var onChunk func(string)
	if stream {
		onChunk = func(chunk string) { fmt.Print(chunk) }
	}

	result, err := orch.RunTurn(ctx, sess, text, onChunk)
	if err != nil {
		var exhausted *retry.ExhaustedError
		var rounds *agent.MaxRoundsError
		switch {
		case errors.Is(err, agent.ErrTurnInFlight):
			color.Yellow("A turn is already running for this session.")
		case errors.As(err, &exhausted):
			color.Red("The model could not be reached after %d attempts: %v", exhausted.Attempts, exhausted.Last)
		case errors.As(err, &rounds):
			color.Red("%v", rounds)
		default:
			color.Red("Turn failed: %v", err)
		}
		return
	}

	if !stream && result.Content != "" {
		fmt.Println(result.Content)
	}
	if stream {
		fmt.Println()
	}
	if result.Notice != "" && !stream {
		// notice already printed by the event subscriber when streaming
		color.Yellow("%s", result.Notice)
	}
}

func isAffirmative(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "ok", "approve":
		return true
	}
	return false
}

func registerVaultTools(registry *tools.Registry, store *vault.DirStore) {
	registry.Register(tools.NewReadNoteTool(store))
	registry.Register(tools.NewListNotesTool(store))
	registry.Register(tools.NewSearchNotesTool(store))
	registry.Register(tools.NewWriteNoteTool(store))
	registry.Register(tools.NewAppendNoteTool(store))
	registry.Register(tools.NewDeleteNoteTool(store))
}

// applyToolDefaults seeds a fresh session's tool policy from config.
// Sessions that already carry a config keep it.
func applyToolDefaults(sess *session.Session, cfg *config.Config) {
	if sess.Len() > 0 {
		return
	}
	sc := sess.GetConfig()
	if len(cfg.Tools.EnabledCategories) > 0 {
		sc.EnabledCategories = cfg.Tools.EnabledCategories
	}
	sc.TrustedTools = cfg.Tools.TrustedTools
	sc.ConfirmRequired = cfg.Tools.ConfirmRequired
	sc.HaltOnToolError = cfg.HaltOnToolError()
	sess.SetConfig(sc)
}
