// Package errors implements the diagnostic reporter shared by every pass
// (spec §7 "Error Handling Design"): five kinds of error, each carrying a
// primary position/message and zero or more related-position frames,
// collected through one channel whose iteration order is stable across
// identical inputs.
package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/veillang/velc/pkg/token"
)

// Kind distinguishes the five error categories spec §7 names.
type Kind int

const (
	Lexical Kind = iota
	Syntax
	Semantic
	Internal
	Warning
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical error"
	case Syntax:
		return "syntax error"
	case Semantic:
		return "semantic error"
	case Internal:
		return "internal error"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// Related is one "defined here"/"clashing use here" annotation frame
// attached to a Diagnostic (spec §7).
type Related struct {
	Pos     token.Position
	Message string
}

// Diagnostic is a single reported error or warning: a kind tag, primary
// position, primary message, and related-position frames (spec §7).
type Diagnostic struct {
	Kind    Kind
	Pos     token.Position
	Message string
	Related []Related

	// Source is the full text of Pos.File, used only for rendering; it
	// may be empty if the caller does not want source-context output.
	Source string
}

func (d *Diagnostic) Error() string { return d.Format(false) }

// Format renders the diagnostic with a source line and caret indicator,
// matching the teacher's line-plus-caret layout (kept verbatim down to
// the gutter width) but generalized to the kind tag and related frames
// spec §7 requires.
func (d *Diagnostic) Format(color bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s: %s:%d:%d: %s\n", d.Kind, d.Pos.File, d.Pos.Line, d.Pos.Column, d.Message)

	if line := sourceLine(d.Source, d.Pos.Line); line != "" {
		gutter := fmt.Sprintf("%4d | ", d.Pos.Line)
		sb.WriteString(gutter)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(gutter)+d.Pos.Column-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	for _, r := range d.Related {
		fmt.Fprintf(&sb, "    %s:%d:%d: %s\n", r.Pos.File, r.Pos.Line, r.Pos.Column, r.Message)
	}

	return sb.String()
}

func sourceLine(source string, line int) string {
	if source == "" || line < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	return lines[line-1]
}

// Reporter accumulates diagnostics across the whole pipeline (spec §4.3,
// §7). It replaces the teacher's process-wide error list with a
// Session-scoped instance so more than one compilation can run without
// sharing state (spec §9 Design Notes' "no process-wide singletons").
type Reporter struct {
	sources map[string]string
	diags   []*Diagnostic
	probe   int // >0 while a probe-mode subtree re-pass suppresses output (spec §4.3)
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{sources: make(map[string]string)}
}

// SetSource registers the full text of a file, used only to render a
// source line and caret under a diagnostic that names it.
func (r *Reporter) SetSource(file, text string) {
	r.sources[file] = text
}

// Report records a diagnostic. It is recorded at once even while a probe
// is open (see BeginProbe), so HasErrors and ErrorCount count it right
// away; only EndProbe with commit false removes it again.
func (r *Reporter) Report(d *Diagnostic) {
	if d.Source == "" {
		d.Source = r.sources[d.Pos.File]
	}
	r.diags = append(r.diags, d)
}

// Errorf is a convenience wrapper building a Diagnostic with no related
// frames.
func (r *Reporter) Errorf(kind Kind, pos token.Position, format string, args ...any) {
	r.Report(&Diagnostic{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// BeginProbe marks the start of a probe-mode region (spec §4.3: sugar
// invoking the scope/expr sub-pipeline speculatively on a synthesized
// subtree). EndProbe(commit bool) either keeps or discards every
// diagnostic reported since the matching BeginProbe.
func (r *Reporter) BeginProbe() int {
	r.probe++
	return len(r.diags)
}

// EndProbe closes a probe opened at mark (the value BeginProbe
// returned). If commit is false, every diagnostic reported since mark is
// discarded — matching spec §4.3's "probe calls from sugar" suppression.
func (r *Reporter) EndProbe(mark int, commit bool) {
	r.probe--
	if !commit {
		r.diags = r.diags[:mark]
	}
}

// Diagnostics returns every recorded diagnostic sorted by file, line
// and column; diagnostics at the same position keep their report order,
// so the result is stable across identical inputs (spec §7).
func (r *Reporter) Diagnostics() []*Diagnostic {
	out := make([]*Diagnostic, len(r.diags))
	copy(out, r.diags)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}

// HasErrors reports whether any non-Warning diagnostic was recorded
// (spec §7: "compilation fails if any error was recorded").
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diags {
		if d.Kind != Warning {
			return true
		}
	}
	return false
}

// ErrorCount counts non-Warning diagnostics.
func (r *Reporter) ErrorCount() int {
	n := 0
	for _, d := range r.diags {
		if d.Kind != Warning {
			n++
		}
	}
	return n
}

// Format renders every diagnostic, in Diagnostics order, each separated by a
// blank line — generalized from the teacher's FormatErrors/
// FormatErrorsWithContext pair to the single Reporter-owned view.
func (r *Reporter) Format(color bool) string {
	diags := r.Diagnostics()
	if len(diags) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, d := range diags {
		sb.WriteString(d.Format(color))
		if i < len(diags)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
