package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumenshine/rankwatch/internal/utils"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the rankwatch database",
}

// shellCmd opens sqlite3 on the rankwatch database, read-only unless --write
// is given.
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open a sqlite3 shell on the keyword database",
	Long: `Open a sqlite3 shell on the keyword database. Tables:

  keyword_rows       the last saved keyword list, one row per keyword and domain
  keyword_changes    added / updated / removed events between snapshots
  keyword_positions  every ranking position seen, by measurement time`,
	RunE: func(cmd *cobra.Command, args []string) error {
		write, _ := cmd.Flags().GetBool("write")

		dbPath, err := utils.GetAbsDBPath(viper.GetString("db.path"))
		if err != nil {
			return err
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("no keyword database at %s yet, run 'rankwatch list' or 'rankwatch poll' first", dbPath)
		}
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 is not in your PATH, install it to use the db shell")
		}

		shellArgs := []string{"-header", "-column", "-cmd", "SELECT COUNT(*) AS tracked_keywords FROM keyword_rows;"}
		if !write {
			shellArgs = append(shellArgs, "-readonly")
		}
		shellArgs = append(shellArgs, dbPath)
		utils.Log.Debugf("Running %s %v", sqlitePath, shellArgs)

		c := exec.CommandContext(cmd.Context(), sqlitePath, shellArgs...)
		c.Stdin = cmd.InOrStdin()
		c.Stdout = cmd.OutOrStdout()
		c.Stderr = cmd.ErrOrStderr()
		return c.Run()
	},
}

// pathCmd prints where the database lives.
var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the database file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := utils.GetAbsDBPath(viper.GetString("db.path"))
		if err != nil {
			return err
		}
		fmt.Println(dbPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	shellCmd.Flags().Bool("write", false, "Open the database read-write")
	dbCmd.AddCommand(pathCmd)
}
