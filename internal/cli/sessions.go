package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwellai/inkwell/internal/config"
	"github.com/inkwellai/inkwell/internal/session"
)

var (
	sessionsDelete string
	sessionsShow   string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List, show, or delete stored sessions",
	Run:   runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsDelete, "delete", "", "Delete the session with this key")
	sessionsCmd.Flags().StringVar(&sessionsShow, "show", "", "Print the transcript of the session with this key")
}

func runSessions(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	manager := session.NewManager(cfg.SessionsDir())

	if sessionsShow != "" {
		sess := manager.GetOrCreate(sessionsShow)
		if sess.Len() == 0 {
			fmt.Printf("Session %s is empty.\n", sessionsShow)
			return
		}
		for _, msg := range sess.History(sess.Len()) {
			role := msg.Role
			switch role {
			case session.RoleUser:
				role = color.GreenString(role)
			case session.RoleAssistant:
				role = color.CyanString(role)
			}
			fmt.Printf("[%s] %s\n", role, msg.Content)
		}
		return
	}

	if sessionsDelete != "" {
		if manager.Delete(sessionsDelete) {
			fmt.Printf("Deleted session %s\n", sessionsDelete)
		} else {
			fmt.Printf("No session named %s\n", sessionsDelete)
			os.Exit(1)
		}
		return
	}

	infos := manager.List()
	if len(infos) == 0 {
		fmt.Println("No stored sessions.")
		return
	}
	for _, info := range infos {
		fmt.Printf("%s  %s  updated %s\n",
			color.GreenString(info.Key), info.ID,
			info.UpdatedAt.Format("2006-01-02 15:04"))
	}
}
