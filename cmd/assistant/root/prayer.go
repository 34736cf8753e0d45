package root

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/prayer"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/theme"
)

func newPrayerCmd() *cobra.Command {
	var (
		cityID string
		search string
	)
	cmd := &cobra.Command{
		Use:   "prayer",
		Short: "Print today's prayer timetable for a city",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig()
			if err != nil {
				return err
			}
			defer closer.Close()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			cache, err := prayer.OpenCache(ctx, cfg.Prayer.CachePath)
			if err != nil {
				return err
			}
			defer cache.Close()
			provider := prayer.NewProvider(prayer.NewClient(cfg.Prayer.BaseURL, cfg.Prayer.Timeout), cache, cfg.Prayer.IhtiyatiMinutes)

			out := cmd.OutOrStdout()
			if cityID == "" {
				cities := prayer.PopularCities
				if search != "" {
					if cities, err = provider.SearchCities(ctx, search); err != nil {
						return err
					}
				}
				fmt.Fprintln(out, titleStyle.Render("🏙️ Cities"))
				for _, c := range cities {
					fmt.Fprintf(out, "  %s %s\n", keyStyle.Render(c.ID), c.Name)
				}
				fmt.Fprintln(out, mutedStyle.Render("use --city ID to show a timetable"))
				return nil
			}

			now := time.Now().In(loc)
			schedule, err := provider.ForDate(ctx, cityID, now)
			if err != nil {
				return err
			}
			next, err := prayer.Countdown(schedule, now)
			if err != nil {
				return err
			}
			th := theme.At(nil, 0)
			if times, err := schedule.ThemeTimes(); err == nil {
				th = theme.At(times, now.Hour()*60+now.Minute())
			}

			fmt.Fprintln(out, renderTimetable(schedule, next, th))
			return nil
		},
	}
	cmd.Flags().StringVar(&cityID, "city", "", "city id, e.g. 1301 for Jakarta")
	cmd.Flags().StringVar(&search, "search", "", "search cities by name instead of printing a timetable")
	return cmd
}

func renderTimetable(s *prayer.Schedule, next prayer.Next, th theme.Theme) string {
	accent := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(th.Accent))

	var b strings.Builder
	b.WriteString(accent.Render("🕌 " + s.Tanggal))
	b.WriteString("\n")
	for _, e := range s.Events() {
		line := fmt.Sprintf("%s %-8s %s", e.Icon, e.Name, e.Time)
		if e.Name == next.Name && !next.Tomorrow {
			line = accent.Render(line + "  ◀")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	countdown := next.Countdown
	if next.Tomorrow {
		countdown = "besok"
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Next: %s %s (%s) · theme %s", next.Name, next.Time, countdown, th.Name)))
	return panelStyle.BorderForeground(lipgloss.Color(th.Accent)).Render(b.String())
}
