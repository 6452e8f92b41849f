package cli

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

)

var circleCmd = &cobra.Command{
	Use:   "circle",
	Short: "Share with your trusted circle",
}

var circleInviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Create an invite code",
	RunE: func(cmd *cobra.Command, args []string) error {
		var inv struct {
			Code      string `json:"code"`
			ExpiresAt int64  `json:"expiresAt"`
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodPost, "/api/circle/invites", nil, &inv); err != nil {
			return err
		}
		fmt.Printf("%s  (expires %s)\n", inv.Code, time.UnixMilli(inv.ExpiresAt).Format(time.DateTime))
		return nil
	},
}

var circleAcceptCmd = &cobra.Command{
	Use:   "accept [code]",
	Short: "Join a circle with an invite code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var conn struct {
			UserID string `json:"userId"`
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodPost, "/api/circle/invites/"+args[0]+"/accept", nil, &conn); err != nil {
			return err
		}
		fmt.Printf("Connected with %s.\n", conn.UserID)
		return nil
	},
}

var circleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		var conns []struct {
			UserID string `json:"userId"`
			Status string `json:"status"`
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodGet, "/api/circle/connections", nil, &conns); err != nil {
			return err
		}
		if len(conns) == 0 {
			fmt.Println("No connections yet. Send someone `reserve circle invite`.")
			return nil
		}
		for _, c := range conns {
			fmt.Printf("  %s (%s)\n", c.UserID, c.Status)
		}
		return nil
	},
}

var shareEmotion string

var circleShareCmd = &cobra.Command{
	Use:   "share [user-id] [content]",
	Short: "Send a deposit to a connection",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := map[string]any{
			"receiverId": args[0],
			"content":    strings.Join(args[1:], " "),
			"emotion":    shareEmotion,
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodPost, "/api/circle/shared", in, nil); err != nil {
			return err
		}
		fmt.Printf("Shared with %s.\n", args[0])
		return nil
	},
}

var circleReceivedCmd = &cobra.Command{
	Use:   "received",
	Short: "List deposits shared with you",
	RunE: func(cmd *cobra.Command, args []string) error {
		var ds []deposit
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodGet, "/api/circle/shared/received", nil, &ds); err != nil {
			return err
		}
		if len(ds) == 0 {
			fmt.Println("Nothing shared with you yet.")
			return nil
		}
		for i := range ds {
			printDeposit(&ds[i])
		}
		return nil
	},
}

var summaryWeeks int

var circleSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "How your shared deposits have been used",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/circle/summary"
		if summaryWeeks > 0 {
			path += fmt.Sprintf("?weeksBack=%d", summaryWeeks)
		}
		var sum struct {
			TotalUses   int `json:"totalUses"`
			HelpfulUses int `json:"helpfulUses"`
			Weeks       int `json:"weeks"`
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodGet, path, nil, &sum); err != nil {
			return err
		}
		fmt.Printf("Last %d weeks: your deposits were used %d times, %d marked helpful.\n",
			sum.Weeks, sum.TotalUses, sum.HelpfulUses)
		return nil
	},
}

func init() {
	circleShareCmd.Flags().StringVarP(&shareEmotion, "emotion", "e", "", "Emotion this is meant for")
	circleSummaryCmd.Flags().IntVarP(&summaryWeeks, "weeks", "w", 0, "Weeks to look back (0 uses the server default)")

	circleCmd.AddCommand(circleInviteCmd)
	circleCmd.AddCommand(circleAcceptCmd)
	circleCmd.AddCommand(circleListCmd)
	circleCmd.AddCommand(circleShareCmd)
	circleCmd.AddCommand(circleReceivedCmd)
	circleCmd.AddCommand(circleSummaryCmd)
}
