package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fundledger/internal/domain"
)

type renderer struct {
	out     io.Writer
	printer *message.Printer
	title   cases.Caser
}

func newRenderer(out io.Writer, lang string) *renderer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return &renderer{
		out:     out,
		printer: message.NewPrinter(tag),
		title:   cases.Title(tag),
	}
}

// units renders a base-unit amount as whole units next to the raw value.
func (r *renderer) units(base string) string {
	d, err := domain.ParseAmount(base)
	if err != nil {
		return base
	}
	return fmt.Sprintf("%s (%s)", domain.FormatEther(d), base)
}

func (r *renderer) fundTable(funds []fundView) error {
	data := pterm.TableData{{"ID", "Name", "Status", "Owner", "Receiver", "Donated"}}
	open := 0
	for _, f := range funds {
		if f.IsOpen {
			open++
		}
		data = append(data, []string{
			strconv.FormatUint(f.ID, 10),
			f.Name,
			r.status(f),
			f.Owner,
			f.Receiver,
			r.units(f.TotalDonated),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(r.out).WithData(data).Render(); err != nil {
		return err
	}
	_, err := r.printer.Fprintf(r.out, "%d funds, %d open\n", len(funds), open)
	return err
}

func (r *renderer) fund(f fundView) error {
	rows := pterm.TableData{
		{"ID", strconv.FormatUint(f.ID, 10)},
		{"Name", f.Name},
		{"Status", r.status(f)},
		{"Owner", f.Owner},
		{"Receiver", f.Receiver},
		{"Donated", r.units(f.TotalDonated)},
		{"Description", f.Description},
	}
	if f.MetadataRef != "" {
		rows = append(rows, []string{"Metadata", f.MetadataRef})
	}
	if !f.CreatedAt.IsZero() {
		rows = append(rows, []string{"Created", f.CreatedAt.Format("2006-01-02 15:04:05 MST")})
	}
	if f.ClosedAt != nil {
		rows = append(rows, []string{"Closed", f.ClosedAt.Format("2006-01-02 15:04:05 MST")})
	}
	return pterm.DefaultTable.WithWriter(r.out).WithData(rows).Render()
}

func (r *renderer) tuple(t []any) error {
	_, err := fmt.Fprintln(r.out, t...)
	return err
}

func (r *renderer) receipt(rc receiptView) error {
	return pterm.DefaultTable.WithWriter(r.out).WithData(pterm.TableData{
		{"Receipt", rc.ID},
		{"To", rc.To},
		{"Amount", r.units(rc.Amount)},
		{"Reference", rc.Reference},
	}).Render()
}

func (r *renderer) balance(label string, b balanceView) error {
	_, err := r.printer.Fprintf(r.out, "%s %s: %s\n", label, b.Account, r.units(b.Balance))
	return err
}

func (r *renderer) status(f fundView) string {
	s := f.Status
	if s == "" {
		s = "closed"
		if f.IsOpen {
			s = "open"
		}
	}
	return r.title.String(s)
}
