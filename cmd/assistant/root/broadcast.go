package root

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newBroadcastCmd() *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Announce a new app version to every subscribed email",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig()
			if err != nil {
				return err
			}
			defer closer.Close()

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.broadcastService()
			if err != nil {
				return err
			}
			if svc == nil {
				return errors.New("mail.host is not configured")
			}

			res, err := svc.Publish(cmd.Context(), version)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Changed {
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("version %s was already announced", res.Version)))
				return nil
			}
			previous := res.Previous
			if previous == "" {
				previous = "-"
			}
			fmt.Fprintln(out, goodStyle.Render(fmt.Sprintf("✔ version %s announced", res.Version)))
			fmt.Fprintf(out, "%s %s\n", keyStyle.Render("Previous:"), previous)
			fmt.Fprintf(out, "%s %d\n", keyStyle.Render("Recipients:"), res.Recipients)
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "version to announce, e.g. 1.4.0")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
