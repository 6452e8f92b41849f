package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/reserve/internal/client"
)

type round struct {
	Outcome string          `json:"outcome"`
	State   json.RawMessage `json:"state"`
	Deposit *deposit        `json:"deposit"`
}

var rainyTarget int

var rainyCmd = &cobra.Command{
	Use:   "rainy [emotion]",
	Short: "Start a rainy-day session",
	Long:  "Shows deposits one at a time and asks how each one landed, until something helps or the reserve runs dry.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		return runRainy(c, strings.Join(args, " "), os.Stdin, os.Stdout)
	},
}

func init() {
	rainyCmd.Flags().IntVar(&rainyTarget, "target", 0, "Deposits to see before the session can finish (0 uses the server default)")
}

// ratings maps the prompt answers to log ratings.
var ratings = map[string]int{
	"l": 2, "loved": 2,
	"h": 1, "helpful": 1,
	"n": -1, "no": -1,
}

func runRainy(c *client.Client, emotion string, in io.Reader, out io.Writer) error {
	var r round
	if err := c.Call(http.MethodPost, "/api/rainy-day/start", map[string]any{"emotion": emotion, "target": rainyTarget}, &r); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for r.Outcome == "awaiting_rating" {
		fmt.Fprintf(out, "\n%s\n", r.Deposit.Content)
		rating, ok := promptRating(scanner, out)
		if !ok {
			return nil
		}
		req := map[string]any{"state": r.State, "rating": rating}
		if rating < 0 {
			if note, ok := promptNote(scanner, out); ok {
				req["feedbackNote"] = note
			}
		}
		var next round
		if err := c.Call(http.MethodPost, "/api/rainy-day/rate", req, &next); err != nil {
			return err
		}
		r = next
	}

	switch r.Outcome {
	case "complete":
		fmt.Fprintln(out, "\nGlad something helped. Take care.")
	case "exhausted":
		fmt.Fprintln(out, "\nThat's everything for now. Add more on a good day.")
	case "empty":
		fmt.Fprintln(out, "Nothing is available right now. Add deposits with `reserve deposit add`.")
	}
	return nil
}

// promptRating reads until a valid answer. ok is false at end of input.
func promptRating(scanner *bufio.Scanner, out io.Writer) (rating int, ok bool) {
	for {
		fmt.Fprint(out, "[l]oved / [h]elpful / [n]o: ")
		if !scanner.Scan() {
			return 0, false
		}
		if n, found := ratings[strings.ToLower(strings.TrimSpace(scanner.Text()))]; found {
			return n, true
		}
	}
}

// promptNote asks what would have helped. An empty line skips.
func promptNote(scanner *bufio.Scanner, out io.Writer) (string, bool) {
	fmt.Fprint(out, "What would have helped? (enter to skip): ")
	if !scanner.Scan() {
		return "", false
	}
	note := strings.TrimSpace(scanner.Text())
	return note, note != ""
}
