package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show reserve statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var st struct {
			Active             int  `json:"active"`
			Cooldown           int  `json:"cooldown"`
			Inactive           int  `json:"inactive"`
			ReceivedActive     int  `json:"receivedActive"`
			NextEligibleInDays *int `json:"nextEligibleInDays"`
			RainyDays          struct {
				WindowDays int `json:"windowDays"`
				Rounds     int `json:"rounds"`
				Positive   int `json:"positive"`
				Negative   int `json:"negative"`
				Empty      int `json:"empty"`
			} `json:"rainyDays"`
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Call(http.MethodGet, "/api/stats", nil, &st); err != nil {
			return err
		}

		fmt.Println("## Reserve")
		fmt.Printf("  active:   %d\n", st.Active)
		fmt.Printf("  cooldown: %d\n", st.Cooldown)
		fmt.Printf("  inactive: %d\n", st.Inactive)
		fmt.Printf("  shared with you: %d\n", st.ReceivedActive)
		if st.NextEligibleInDays != nil {
			fmt.Printf("  next available in %d days\n", *st.NextEligibleInDays)
		}
		fmt.Println()
		fmt.Printf("## Rainy days (last %d days)\n", st.RainyDays.WindowDays)
		fmt.Printf("  rounds: %d  helped: %d  didn't: %d  empty: %d\n",
			st.RainyDays.Rounds, st.RainyDays.Positive, st.RainyDays.Negative, st.RainyDays.Empty)
		return nil
	},
}
