package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/aryanox/ipalchemist/internal/model"
)

// MarkdownWriter outputs snapshots as Markdown for documentation and
// sharing. Tables carry the data; the pool protocol mix is rendered as
// a mermaid pie chart.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter targeting output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(snap *Snapshot) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, snap)
	w.writeCurrent(md, snap)
	w.writePoolChart(md, snap)
	w.writeFavorites(md, snap)
	w.writeHistory(md, snap)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, snap *Snapshot) {
	md.H1("IP Alchemist Report")
	md.PlainText("")

	rotation := "inactive"
	if snap.RotationActive {
		rotation = fmt.Sprintf("active, every %ds", snap.IntervalSeconds)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated At", snap.GeneratedAt.Format(time.RFC3339)},
			{"Pool Size", strconv.Itoa(len(snap.Pool))},
			{"Rotation", rotation},
		},
	})
}

func (w *MarkdownWriter) writeCurrent(md *markdown.Markdown, snap *Snapshot) {
	md.H2("Current Egress")
	if snap.Current == nil {
		md.PlainText("No egress point is applied.")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Endpoint", "Protocol", "Country", "Observed IP", "Latency (ms)"},
		Rows: [][]string{{
			snap.Current.Addr(),
			string(snap.Current.Protocol),
			orDash(snap.Current.Country),
			orDash(snap.Current.ObservedIP),
			latencyText(snap.Current.LatencyMs),
		}},
	})
}

// writePoolChart renders the pool's protocol distribution.
func (w *MarkdownWriter) writePoolChart(md *markdown.Markdown, snap *Snapshot) {
	if len(snap.Pool) == 0 {
		return
	}

	counts := make(map[model.Protocol]uint64)
	for _, record := range snap.Pool {
		counts[record.Protocol]++
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pool Protocol Distribution"),
		piechart.WithShowData(true),
	)
	for _, protocol := range model.DefaultProtocolPreference() {
		if n := counts[protocol]; n > 0 {
			chart.LabelAndIntValue(string(protocol), n)
		}
	}

	md.H2("Pool")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFavorites(md *markdown.Markdown, snap *Snapshot) {
	md.H2("Favorites")
	if len(snap.Favorites) == 0 {
		md.PlainText("No favorites saved.")
		return
	}

	rows := make([][]string, 0, len(snap.Favorites))
	for _, fav := range snap.Favorites {
		rows = append(rows, []string{
			fav.Host,
			strconv.Itoa(int(fav.Port)),
			string(fav.Protocol),
			orDash(fav.Country),
			fav.AddedAt.Format(time.RFC3339),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Host", "Port", "Protocol", "Country", "Added At"},
		Rows:   rows,
	})
}

func (w *MarkdownWriter) writeHistory(md *markdown.Markdown, snap *Snapshot) {
	md.H2("Rotation History")
	if len(snap.History) == 0 {
		md.PlainText("No proxies have been applied yet.")
		return
	}

	rows := make([][]string, 0, len(snap.History))
	for _, entry := range snap.History {
		rows = append(rows, []string{
			entry.AppliedAt.Format(time.RFC3339),
			fmt.Sprintf("%s:%d", entry.Host, entry.Port),
			string(entry.Protocol),
			orDash(entry.ObservedIP),
			latencyText(entry.LatencyMs),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Applied At", "Endpoint", "Protocol", "Observed IP", "Latency (ms)"},
		Rows:   rows,
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func latencyText(ms int) string {
	if ms < 0 {
		return "-"
	}
	return strconv.Itoa(ms)
}
