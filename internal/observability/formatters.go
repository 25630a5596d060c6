// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/amizuno/winscope/internal/pipeline"
	"github.com/amizuno/winscope/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCycleReport outputs a human-readable summary of one discovery cycle.
func (p *Printer) PrintCycleReport(report *pipeline.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Duration:        %s\n", report.Duration.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Candidates:      %d\n", report.Candidates))
	sb.WriteString(fmt.Sprintf("Opportunities:   %d\n", report.Opportunities))
	sb.WriteString(fmt.Sprintf("Newly qualified: %d\n", report.NewlyQualified))
	if report.JudgmentErrors > 0 {
		sb.WriteString(fmt.Sprintf("Judgment errors: %d\n", report.JudgmentErrors))
	}
	if report.StoreErrors > 0 {
		sb.WriteString(fmt.Sprintf("Store errors:    %d\n", report.StoreErrors))
	}

	if len(report.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for _, s := range report.Sources {
			status := "ok"
			if s.Failed {
				status = "FAILED"
			}
			sb.WriteString(fmt.Sprintf("  %-20s %3d found  %-6s %s\n",
				s.Name, s.Candidates, status, s.Duration.Round(time.Millisecond)))
		}
	}

	p.printBox("DISCOVERY CYCLE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScored outputs the top scored opportunities with their factor vectors.
func (p *Printer) PrintScored(scored []types.ScoredOpportunity) {
	if len(scored) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total scored: %d\n\n", len(scored)))

	count := min(len(scored), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := scored[i]
		title := s.Opportunity.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, title))
		sb.WriteString(fmt.Sprintf("    Score: %.2f  (%s)\n", s.Score, s.Opportunity.ID))
		sb.WriteString(fmt.Sprintf("    Factors: cat %.2f  val %.2f  geo %.2f  set %.2f  sem %.2f\n",
			s.Factors.Category, s.Factors.Value, s.Factors.Geography,
			s.Factors.SetAside, s.Factors.Semantic))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(scored) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more\n", len(scored)-maxItemsToShow))
	}

	p.printBox("SCORED OPPORTUNITIES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecord outputs one pipeline record with its stage history.
func (p *Printer) PrintRecord(record *types.PipelineRecord) {
	if record == nil {
		return
	}

	var sb strings.Builder
	title := record.Opportunity.Title
	if len(title) > 44 {
		title = title[:41] + "..."
	}
	sb.WriteString(fmt.Sprintf("Title:  %s\n", title))
	sb.WriteString(fmt.Sprintf("Agency: %s\n", record.Opportunity.Agency))
	sb.WriteString(fmt.Sprintf("Stage:  %s\n", record.Stage))
	sb.WriteString(fmt.Sprintf("Score:  %.2f\n", record.Score))
	if record.DecisionReason != "" {
		sb.WriteString(fmt.Sprintf("Reason: %s\n", record.DecisionReason))
	}

	if len(record.StageHistory) > 0 {
		sb.WriteString("\nHistory:\n")
		for _, entry := range stageTimeline(record) {
			sb.WriteString(fmt.Sprintf("  %-22s %s\n", entry.stage, entry.at.Format("2006-01-02 15:04")))
		}
	}

	p.printBox("PIPELINE RECORD", strings.TrimSuffix(sb.String(), "\n"))
}

type timelineEntry struct {
	stage types.Stage
	at    time.Time
}

// stageTimeline orders the stage history by lifecycle position.
func stageTimeline(record *types.PipelineRecord) []timelineEntry {
	entries := make([]timelineEntry, 0, len(record.StageHistory))
	for stage, at := range record.StageHistory {
		entries = append(entries, timelineEntry{stage: stage, at: at})
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].stage.Index() < entries[j-1].stage.Index(); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	return entries
}
