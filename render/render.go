package render

import (
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/wippyai/storage-layout/slots"
)

// Absent is shown for a side that has no counterpart.
const Absent = "-"

var headers = []string{"Slot", "Offset", "Type", "Name", "Visualization"}

// ColorEnabled reports whether output to f should be colored.
// NO_COLOR in the environment disables color as well.
func ColorEnabled(f *os.File, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Printer renders collated and merged layouts as tables.
type Printer struct {
	r *lipgloss.Renderer

	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
	removed lipgloss.Style
	added   lipgloss.Style
	shared  lipgloss.Style
	notice  lipgloss.Style
}

// NewPrinter returns a Printer that emits ANSI colors only when color is true.
func NewPrinter(color bool) *Printer {
	r := lipgloss.NewRenderer(io.Discard)
	if color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Printer{
		r:       r,
		header:  r.NewStyle().Bold(true).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		border:  r.NewStyle().Foreground(lipgloss.Color("8")),
		removed: r.NewStyle().Foreground(lipgloss.Color("1")),
		added:   r.NewStyle().Foreground(lipgloss.Color("2")),
		shared:  r.NewStyle().Foreground(lipgloss.Color("5")),
		notice:  r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (p *Printer) table(rows [][]string, hdr []string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.border).
		BorderRow(true).
		Headers(hdr...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return p.cell
		})
	return t.String()
}

// FormatSlot prints ids that fit in 64 bits in decimal and larger ones in hex.
func FormatSlot(id *big.Int) string {
	if id == nil {
		return Absent
	}
	if id.BitLen() > 64 {
		return "0x" + id.Text(16)
	}
	return id.String()
}

// Collated renders one layout.
func (p *Printer) Collated(collated []slots.CollatedSlot) string {
	var rows [][]string
	for _, s := range collated {
		for _, e := range s.Entries {
			rows = append(rows, []string{
				FormatSlot(s.ID),
				strconv.Itoa(e.Offset),
				e.Type.Label,
				e.Name,
				Visualize(e.Offset, e.Size, s.SizeFilled),
			})
		}
	}
	return p.table(rows, headers)
}

// Merged renders two aligned layouts. Differing cells show "A => B" with A in red and B
// in green. Bytes filled on both sides are magenta, bytes filled on one side only red.
func (p *Printer) Merged(merged []slots.MergedCollatedSlot) string {
	var rows [][]string
	for _, s := range merged {
		for _, e := range s.Entries {
			rows = append(rows, []string{
				FormatSlot(s.ID),
				p.offsetCell(e),
				p.typeCell(e),
				p.nameCell(e),
				p.mergedBar(s, e),
			})
		}
	}
	return p.table(rows, headers)
}

func (p *Printer) diff(a, b string) string {
	if a == b {
		return a
	}
	return p.removed.Render(a) + " => " + p.added.Render(b)
}

func (p *Printer) offsetCell(e slots.MergedCollatedSlotEntry) string {
	return p.diff(optional(e.OffsetA, strconv.Itoa), optional(e.OffsetB, strconv.Itoa))
}

func (p *Printer) nameCell(e slots.MergedCollatedSlotEntry) string {
	return p.diff(optional(e.NameA, identity), optional(e.NameB, identity))
}

func (p *Printer) typeCell(e slots.MergedCollatedSlotEntry) string {
	a, b := Absent, Absent
	if e.TypeA != nil {
		a = e.TypeA.Label
	}
	if e.TypeB != nil {
		b = e.TypeB.Label
	}
	return p.diff(a, b)
}

func (p *Printer) mergedBar(s slots.MergedCollatedSlot, e slots.MergedCollatedSlotEntry) string {
	a := bar(e.OffsetOf(slots.SideA), e.SizeOf(slots.SideA), s.SizeFilledA)
	b := bar(e.OffsetOf(slots.SideB), e.SizeOf(slots.SideB), s.SizeFilledB)

	var sb strings.Builder
	for i := range a {
		switch {
		case a[i] == b[i] && a[i] == Filled:
			sb.WriteString(p.shared.Render(string(Filled)))
		case a[i] == b[i]:
			sb.WriteRune(a[i])
		case a[i] == Filled || b[i] == Filled:
			sb.WriteString(p.removed.Render(string(Filled)))
		default:
			sb.WriteRune(Placeholder)
		}
	}
	return sb.String()
}

// Changes renders classified entries with their verdicts.
func (p *Printer) Changes(changes []slots.Change) string {
	var rows [][]string
	for _, c := range changes {
		e := c.Entry
		rows = append(rows, []string{
			FormatSlot(c.Slot),
			p.offsetCell(e),
			p.typeCell(e),
			p.nameCell(e),
			p.kindCell(c.Kind),
		})
	}
	return p.table(rows, []string{"Slot", "Offset", "Type", "Name", "Change"})
}

func (p *Printer) kindCell(k slots.ChangeKind) string {
	switch {
	case k.Breaking():
		return p.removed.Render(string(k))
	case k == slots.ChangeAdded:
		return p.added.Render(string(k))
	case k == slots.ChangeRenamed:
		return p.notice.Render(string(k))
	}
	return string(k)
}

func optional[T any](v *T, format func(T) string) string {
	if v == nil {
		return Absent
	}
	return format(*v)
}

func identity(s string) string { return s }
