package cli

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

)

// deposit mirrors the server's deposit json.
type deposit struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	Emotion        *string  `json:"emotion"`
	MediaURI       *string  `json:"mediaUri"`
	MediaType      *string  `json:"mediaType"`
	Tags           []string `json:"tags"`
	LastSurfacedAt *int64   `json:"lastSurfacedAt"`
	Status         int      `json:"status"`
	State          string   `json:"state"`
	CreatedAt      int64    `json:"createdAt"`
	SenderID       string   `json:"senderId"`
}

func printDeposit(d *deposit) {
	fmt.Printf("%s  [%s]\n", d.ID, stateLabel(d))
	fmt.Printf("   %s\n", d.Content)
	var meta []string
	if d.Emotion != nil {
		meta = append(meta, "for: "+*d.Emotion)
	}
	if d.MediaType != nil && d.MediaURI != nil {
		meta = append(meta, *d.MediaType+": "+*d.MediaURI)
	}
	if len(d.Tags) > 0 {
		meta = append(meta, "#"+strings.Join(d.Tags, " #"))
	}
	if d.SenderID != "" {
		meta = append(meta, "from "+d.SenderID)
	}
	if len(meta) > 0 {
		fmt.Printf("   %s\n", strings.Join(meta, "  "))
	}
}

func stateLabel(d *deposit) string {
	if d.State == "cooldown" {
		return fmt.Sprintf("cooldown %dd", d.Status)
	}
	return d.State
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Manage your deposits",
}

var (
	depositEmotion   string
	depositTags      []string
	depositMediaURI  string
	depositMediaType string
	depositAll       bool
)

var depositAddCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Save something for a rainy day",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := map[string]any{
			"content":   strings.Join(args, " "),
			"emotion":   depositEmotion,
			"tags":      depositTags,
			"mediaUri":  depositMediaURI,
			"mediaType": depositMediaType,
		}
		var d deposit
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodPost, "/api/deposits", in, &d); err != nil {
			return err
		}
		printDeposit(&d)
		return nil
	},
}

var depositListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deposits, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/deposits"
		if depositAll {
			path += "?includeInactive=true"
		}
		var ds []deposit
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodGet, path, nil, &ds); err != nil {
			return err
		}
		if len(ds) == 0 {
			fmt.Println("Your reserve is empty. Add something with `reserve deposit add`.")
			return nil
		}
		for i := range ds {
			printDeposit(&ds[i])
		}
		return nil
	},
}

var depositSurfaceCmd = &cobra.Command{
	Use:   "surface",
	Short: "Bring back one deposit at random",
	RunE: func(cmd *cobra.Command, args []string) error {
		var d *deposit
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodGet, "/api/deposits/surface", nil, &d); err != nil {
			return err
		}
		if d == nil {
			fmt.Println("Nothing is available right now.")
			return nil
		}
		printDeposit(d)
		fmt.Printf("   saved %s\n", time.UnixMilli(d.CreatedAt).Format("Jan 2, 2006"))
		return nil
	},
}

var depositStatusCmd = &cobra.Command{
	Use:   "status [id] [status]",
	Short: "Set status: 0 active, -1 inactive, 1-365 days of cooldown",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var n int
		if _, err := fmt.Sscan(args[1], &n); err != nil {
			return fmt.Errorf("status must be an integer: %w", err)
		}
		var d deposit
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodPut, "/api/deposits/"+args[0]+"/status", map[string]int{"status": n}, &d); err != nil {
			return err
		}
		printDeposit(&d)
		return nil
	},
}

var depositRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a deposit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodDelete, "/api/deposits/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	depositAddCmd.Flags().StringVarP(&depositEmotion, "emotion", "e", "", "Emotion this is meant for")
	depositAddCmd.Flags().StringSliceVarP(&depositTags, "tag", "t", nil, "Tag (repeatable)")
	depositAddCmd.Flags().StringVar(&depositMediaURI, "media", "", "Media URI")
	depositAddCmd.Flags().StringVar(&depositMediaType, "media-type", "", "photo, video, or audio")
	depositListCmd.Flags().BoolVarP(&depositAll, "all", "a", false, "Include inactive deposits")

	depositCmd.AddCommand(depositAddCmd)
	depositCmd.AddCommand(depositListCmd)
	depositCmd.AddCommand(depositSurfaceCmd)
	depositCmd.AddCommand(depositStatusCmd)
	depositCmd.AddCommand(depositRmCmd)
}
