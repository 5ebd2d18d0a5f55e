package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mind-engage/mindengage-psych/internal/psytest"
	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

type styles struct {
	header lipgloss.Style
	ok     lipgloss.Style
	bad    lipgloss.Style
	low    lipgloss.Style
	medium lipgloss.Style
	high   lipgloss.Style
	dim    lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		bad:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		low:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		medium: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		high:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s styles) level(l scoring.Level) lipgloss.Style {
	switch l {
	case scoring.LevelLow:
		return s.low
	case scoring.LevelHigh:
		return s.high
	default:
		return s.medium
	}
}

func renderReport(r Report, st styles) string {
	var b strings.Builder
	title := r.Title
	if title == "" {
		title = r.TestID
	}
	b.WriteString(st.header.Render(title) + "\n")

	verdict := st.bad.Render("not passed")
	if r.Passed {
		verdict = st.ok.Render("passed")
	}
	fmt.Fprintf(&b, "Score: %g / %g (%.1f%%) %s\n", r.Score, r.MaxPossibleScore, r.Percentage, verdict)

	if len(r.FactorScores) > 0 {
		b.WriteString("\n" + st.header.Render("Factors") + "\n")
		ids := make([]string, 0, len(r.FactorScores))
		for id := range r.FactorScores {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			in, ok := r.Interpretation[id]
			name := id
			if ok && in.Name != "" {
				name = in.Name
			}
			fmt.Fprintf(&b, "  %-20s %3d  %s\n", name, r.FactorScores[id], st.level(in.Level).Render(string(in.Level)))
			if in.Description != "" {
				b.WriteString("    " + st.dim.Render(in.Description) + "\n")
			}
		}
	}

	var notes []string
	for _, q := range r.Questions {
		switch {
		case q.Unscoreable:
			notes = append(notes, fmt.Sprintf("%s: unscoreable (%s)", q.QuestionID, q.Note))
		case !q.Answered:
			notes = append(notes, q.QuestionID+": unanswered")
		}
	}
	if len(notes) > 0 {
		b.WriteString("\n" + st.dim.Render(strings.Join(notes, "\n")) + "\n")
	}
	return b.String()
}

func renderProblems(path string, ve *psytest.ValidationError, st styles) string {
	var b strings.Builder
	b.WriteString(st.bad.Render(path+": "+ve.Msg) + "\n")
	keys := make([]string, 0, len(ve.Fields))
	for k := range ve.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, ve.Fields[k])
	}
	return b.String()
}
