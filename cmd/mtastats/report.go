package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rxtx-hosting/mtastats/pkg/estimator"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func reportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the current status and forecast summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			obs, err := openStore(cfg).Load()
			if err != nil {
				return err
			}

			report, ok := newEstimator(cfg).BuildReport(cmd.Context(), obs)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("!")+" No data available. Waiting for the first update from the servers.")
				return nil
			}
			renderReport(cmd.OutOrStdout(), report, time.Now())
			return nil
		},
	}
}

func renderReport(w io.Writer, r estimator.Report, now time.Time) {
	s := r.Summary

	fmt.Fprintln(w, titleStyle.Render("MTA:SA Player Statistics"))
	fmt.Fprint(w, keyValues(
		[2]string{"Players Online", fmt.Sprintf("%s %s", humanize.Comma(int64(s.Players)), delta(s.PlayersDelta, fmt.Sprintf(" (%.1f%%)", s.PlayersPct)))},
		[2]string{"Active Servers", fmt.Sprintf("%s %s", humanize.Comma(int64(s.Servers)), delta(s.ServersDelta, ""))},
		[2]string{"24h Peak", humanize.Comma(int64(s.PeakPlayers))},
		[2]string{"Last Update", fmt.Sprintf("%s (%s)", s.LastUpdate.Format("15:04"), humanize.RelTime(s.LastUpdate, now, "ago", "from now"))},
	))
	fmt.Fprintln(w)

	f := r.Forecast
	switch f.State {
	case estimator.PanelReady:
		fmt.Fprintln(w, infoStyle.Render("●")+" Summary: "+f.Trend.String())
	case estimator.PanelUnavailable:
		fmt.Fprintln(w, warnStyle.Render("!")+" Forecast unavailable: "+f.Err)
	default:
		fmt.Fprintf(w, "%s More data is required to generate a forecast. (Currently %d/%d points).\n", warnStyle.Render("!"), f.Have, f.Required)
	}

	if day, hour, mean, ok := r.Heatmap.Busiest(); r.HasHeatmap && ok {
		fmt.Fprintf(w, "%s Busiest hour: %s %02d:00 UTC (avg. %s players)\n", infoStyle.Render("●"), day, hour, humanize.Comma(int64(mean)))
	} else {
		fmt.Fprintln(w, labelStyle.Render("Not enough data to generate the activity heatmap."))
	}
}

func delta(n int, suffix string) string {
	text := fmt.Sprintf("%+d%s", n, suffix)
	if n < 0 {
		return downStyle.Render(text)
	}
	return upStyle.Render(text)
}

// keyValues renders aligned "key:  value" lines.
func keyValues(pairs ...[2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}

	var b strings.Builder
	for _, p := range pairs {
		key := labelStyle.Render(p[0] + ":")
		pad := strings.Repeat(" ", width-lipgloss.Width(p[0])+2)
		b.WriteString("  " + key + pad + p[1] + "\n")
	}
	return b.String()
}
