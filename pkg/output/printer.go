// Package output renders CLI results as a table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/scttfrdmn/asgresume/pkg/orchestrator"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// RoleRow describes one configured candidate role.
type RoleRow struct {
	Role      string `json:"role" yaml:"role"`
	AccountID string `json:"account_id" yaml:"account_id"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// AttemptRow describes what one candidate account returned.
type AttemptRow struct {
	Role      string `json:"role" yaml:"role"`
	AccountID string `json:"account_id" yaml:"account_id"`
	Stage     string `json:"stage" yaml:"stage"`
	Found     bool   `json:"found" yaml:"found"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ResultView is the printable form of an orchestrator result.
type ResultView struct {
	ASGName       string       `json:"asg_name" yaml:"asg_name"`
	Status        string       `json:"status" yaml:"status"`
	StatusCode    int          `json:"status_code" yaml:"status_code"`
	AccountID     string       `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	RoleARN       string       `json:"role_arn,omitempty" yaml:"role_arn,omitempty"`
	Health        string       `json:"health,omitempty" yaml:"health,omitempty"`
	Samples       int          `json:"samples,omitempty" yaml:"samples,omitempty"`
	PollElapsed   string       `json:"poll_elapsed,omitempty" yaml:"poll_elapsed,omitempty"`
	Duration      string       `json:"duration" yaml:"duration"`
	CorrelationID string       `json:"correlation_id,omitempty" yaml:"correlation_id,omitempty"`
	Error         string       `json:"error,omitempty" yaml:"error,omitempty"`
	Attempts      []AttemptRow `json:"attempts" yaml:"attempts"`
}

// NewResultView flattens r for printing.
func NewResultView(r orchestrator.Result) ResultView {
	v := ResultView{
		ASGName:       r.ASGName,
		Status:        string(r.Status),
		StatusCode:    r.StatusCode(),
		AccountID:     r.AccountID,
		RoleARN:       r.RoleARN,
		Health:        r.Health(),
		Duration:      r.Duration.String(),
		CorrelationID: r.CorrelationID,
		Attempts:      make([]AttemptRow, 0, len(r.Attempts)),
	}
	if r.Polled {
		v.Samples = r.Poll.Samples
		v.PollElapsed = r.Poll.Elapsed.String()
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	for _, a := range r.Attempts {
		v.Attempts = append(v.Attempts, NewAttemptRow(a))
	}
	return v
}

// NewAttemptRow flattens one attempt.
func NewAttemptRow(a orchestrator.Attempt) AttemptRow {
	row := AttemptRow{
		Role:      a.Role,
		AccountID: a.AccountID,
		Stage:     string(a.Stage),
		Found:     a.Found,
	}
	if a.Err != nil {
		row.Error = a.Err.Error()
	}
	return row
}

// Printer handles output formatting
type Printer struct {
	out      io.Writer
	format   string
	useColor bool
}

// NewPrinter creates a printer writing format to out.
func NewPrinter(out io.Writer, format string, useColor bool) (*Printer, error) {
	switch format {
	case "", FormatTable:
		format = FormatTable
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported output format %q (want table, json or yaml)", format)
	}
	return &Printer{out: out, format: format, useColor: useColor}, nil
}

// Format returns the selected format.
func (p *Printer) Format() string {
	return p.format
}

// PrintResult prints a resume outcome followed by the per-account attempts.
func (p *Printer) PrintResult(r orchestrator.Result) error {
	view := NewResultView(r)
	switch p.format {
	case FormatJSON:
		return p.printJSON(view)
	case FormatYAML:
		return p.printYAML(view)
	}

	p.headline(view.Status == string(orchestrator.StatusSuccess),
		"%s %s (%d)", view.ASGName, view.Status, view.StatusCode)
	if view.AccountID != "" {
		fmt.Fprintf(p.out, "Account:  %s\n", view.AccountID)
	}
	if view.Health != "" {
		fmt.Fprintf(p.out, "Health:   %s after %d sample(s), %s\n", view.Health, view.Samples, view.PollElapsed)
	}
	if view.Error != "" {
		fmt.Fprintf(p.out, "Error:    %s\n", view.Error)
	}
	fmt.Fprintf(p.out, "Duration: %s\n\n", view.Duration)

	return p.PrintAttempts(view.Attempts)
}

// PrintAttempts prints one row per candidate account.
func (p *Printer) PrintAttempts(rows []AttemptRow) error {
	switch p.format {
	case FormatJSON:
		return p.printJSON(rows)
	case FormatYAML:
		return p.printYAML(rows)
	}

	table := p.newTable([]string{"Account", "Role", "Stage", "Found", "Error"})
	for _, row := range rows {
		table.Append([]string{row.AccountID, row.Role, row.Stage, strconv.FormatBool(row.Found), row.Error})
	}
	table.Render()
	return nil
}

// PrintRoles prints the configured candidate roles.
func (p *Printer) PrintRoles(rows []RoleRow) error {
	switch p.format {
	case FormatJSON:
		return p.printJSON(rows)
	case FormatYAML:
		return p.printYAML(rows)
	}

	p.headline(true, "%d candidate role(s)", len(rows))
	table := p.newTable([]string{"Account", "Role", "Error"})
	for _, row := range rows {
		table.Append([]string{row.AccountID, row.Role, row.Error})
	}
	table.Render()
	return nil
}

func (p *Printer) newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(p.out)
	table.SetBorder(true)
	table.SetRowLine(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(headers)

	if p.useColor {
		colors := make([]tablewriter.Colors, len(headers))
		for i := range colors {
			colors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor}
		}
		table.SetHeaderColor(colors...)
	}
	return table
}

func (p *Printer) headline(ok bool, format string, args ...interface{}) {
	if !p.useColor {
		fmt.Fprintf(p.out, format+"\n", args...)
		return
	}
	c := color.New(color.FgGreen, color.Bold)
	if !ok {
		c = color.New(color.FgRed, color.Bold)
	}
	c.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) printJSON(v interface{}) error {
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (p *Printer) printYAML(v interface{}) error {
	encoder := yaml.NewEncoder(p.out)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(v)
}
