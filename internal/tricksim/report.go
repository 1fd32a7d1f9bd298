package tricksim

import (
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// maxProblemRows bounds the problem table so a broken run stays readable.
const maxProblemRows = 20

// Render writes a summary table, followed by a table of failing submissions
// when there are any.
func Render(out io.Writer, s Stats, outcomes []*Outcome) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetTitle("Trick simulation")
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Submissions", s.Submissions},
		{"Created", s.Created},
		{"Completed", s.Completed},
		{"Verified", s.Verified},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Scores sent", s.ScoresSent},
		{"Scores accepted", s.ScoresAccepted},
		{"Scores rejected (409)", s.ScoresRejected},
		{"Scores failed", s.ScoresFailed},
	})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Tokens awarded", s.TokensAwarded})
	tw.AppendFooter(table.Row{"Duration", s.Duration.Round(time.Millisecond).String()})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	tw.Render()

	pw := table.NewWriter()
	pw.SetOutputMirror(out)
	pw.SetTitle("Problems")
	pw.AppendHeader(table.Row{"Validation", "Skater", "Problem"})
	rows := 0
	for _, o := range outcomes {
		if len(o.Problems) == 0 {
			continue
		}
		if rows == maxProblemRows {
			pw.AppendFooter(table.Row{"", "", "more problems omitted"})
			break
		}
		pw.AppendRow(table.Row{o.ValidationID, o.SkaterID, strings.Join(o.Problems, "; ")})
		rows++
	}
	if rows > 0 {
		pw.Render()
	}
}
