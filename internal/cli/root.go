package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/reserve/internal/client"
)

var rootCmd = &cobra.Command{
	Use:          "reserve",
	Short:        "An emotional memory bank",
	Long:         "Reserve keeps the notes, photos, and voice memos you save on good days and brings them back on hard ones. Share them with a trusted circle.",
	SilenceUsage: true,
}

var (
	serverURL string
	userID    string
)

func Execute() error {
	return rootCmd.Execute()
}

// newClient connects to the server named by --server or RESERVE_URL and
// fails early when nothing answers there.
func newClient() (*client.Client, error) {
	c := client.New(serverURL, userID)
	if !c.Healthy() {
		return nil, fmt.Errorf("reserve server not running at %s (start it with `reserve serve`)", c.URL())
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL (default $RESERVE_URL or http://127.0.0.1:37778)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User id sent as X-User-ID (default $RESERVE_USER)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(rainyCmd)
	rootCmd.AddCommand(circleCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(tokenCmd)
}
