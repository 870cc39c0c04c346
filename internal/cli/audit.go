package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwellai/inkwell/internal/audit"
	"github.com/inkwellai/inkwell/internal/config"
)

var (
	auditSession string
	auditOutcome string
	auditLimit   int
	auditTurns   bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect recorded tool executions and turns",
	Run:   runAudit,
}

func init() {
	auditCmd.Flags().StringVarP(&auditSession, "session", "s", "", "Filter by session ID")
	auditCmd.Flags().StringVar(&auditOutcome, "outcome", "", "Filter executions by outcome (success, failure, declined)")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Maximum rows to show")
	auditCmd.Flags().BoolVar(&auditTurns, "turns", false, "Show turns instead of tool executions")
}

func runAudit(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	store, err := audit.Open(cfg.AuditDBPath())
	if err != nil {
		fmt.Printf("Audit error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if auditTurns {
		showTurns(store)
		return
	}
	showExecutions(store)
}

func showExecutions(store *audit.Store) {
	execs, err := store.ListExecutions(auditSession, auditLimit)
	if err != nil {
		fmt.Printf("Query error: %v\n", err)
		os.Exit(1)
	}
	if len(execs) == 0 {
		fmt.Println("No recorded tool executions.")
		return
	}
	for _, e := range execs {
		if auditOutcome != "" && e.Outcome != auditOutcome {
			continue
		}
		status := color.GreenString(e.Outcome)
		if e.Outcome != audit.OutcomeSuccess {
			status = color.RedString("%s(%s)", e.Outcome, e.FailureKind)
		}
		fmt.Printf("%s  %-14s %-12s %s  %dms\n",
			e.CreatedAt.Format("01-02 15:04:05"), e.Tool, e.Category, status, e.DurationMS)
	}
}

func showTurns(store *audit.Store) {
	turns, err := store.GetTurns(auditSession, auditLimit)
	if err != nil {
		fmt.Printf("Query error: %v\n", err)
		os.Exit(1)
	}
	if len(turns) == 0 {
		fmt.Println("No recorded turns.")
		return
	}
	for _, t := range turns {
		status := color.GreenString(t.Status)
		if t.Status != audit.TurnCompleted {
			status = color.RedString(t.Status)
		}
		fmt.Printf("%s  %s  rounds=%d tools=%d tokens=%d  %s\n",
			t.StartedAt.Format("01-02 15:04:05"), status, t.Rounds, t.ToolCalls, t.TotalTokens, t.ErrorText)
	}
}
