package view

import (
	"strconv"
	"time"

	"github.com/lshigami/labsignoff/internal/model"
)

type PartsState int

const (
	PartsHidden PartsState = iota
	PartsLoading
	PartsEmpty
	PartsListed
)

type PartRow struct {
	Part     model.Part
	Status   model.SignoffStatus
	Selected bool
}

type CriterionRow struct {
	Criterion model.Criterion
	Level     model.QualityLevel
}

type EvaluationRow struct {
	Criterion model.EvaluationCriterion
	MaxMarks  float64
	Status    model.EvaluationStatus
}

type AlertKind string

const (
	AlertInfo    AlertKind = "info"
	AlertSuccess AlertKind = "success"
	AlertWarning AlertKind = "warning"
	AlertDanger  AlertKind = "danger"
)

type Alert struct {
	ID      string
	Kind    AlertKind
	Message string
}

// SignoffViewModel is a full snapshot of the signoff page.
type SignoffViewModel struct {
	Student *model.SelectedStudent
	LabName string

	PartsState PartsState
	Parts      []PartRow

	FormVisible bool
	PartName    string
	Criteria    []CriterionRow
	Evaluation  []EvaluationRow
	Overall     model.QualityLevel
	Comments    string

	History []model.HistoryEntry

	Alerts         []Alert
	Busy           bool
	SuccessVisible bool
}

const (
	noPartsText    = "No parts found for this lab"
	loadingText    = "Loading..."
	noCommentsText = "No comments"
	historyLayout  = "2006-01-02 15:04:05"
)

// SignoffView renders the whole page for vm. Applying it twice is harmless.
func SignoffView(vm SignoffViewModel) []Instruction {
	var out []Instruction

	if vm.Student != nil {
		out = append(out,
			setText(StudentName, vm.Student.Name),
			setText(StudentEmail, vm.Student.EmailOrPlaceholder()),
			show(StudentInfo),
		)
	} else {
		out = append(out, hide(StudentInfo), setText(StudentName, ""), setText(StudentEmail, ""))
	}

	out = append(out, partsView(vm)...)
	out = append(out, formView(vm)...)

	out = append(out, replaceChildren(SignoffHistory, historyNodes(vm.History)...))
	out = append(out, visibility(HistoryCard, vm.FormVisible && len(vm.History) > 0))

	alerts := make([]Element, 0, len(vm.Alerts))
	for _, a := range vm.Alerts {
		alerts = append(alerts, Element{
			Tag:   "div",
			ID:    "alert-" + a.ID,
			Class: "alert alert-" + string(a.Kind) + " alert-dismissible",
			Text:  a.Message,
		})
	}
	out = append(out, replaceChildren(Alerts, alerts...), visibility(Alerts, len(alerts) > 0))

	if vm.Busy {
		out = append(out, setText(Spinner, loadingText), show(Spinner))
	} else {
		out = append(out, hide(Spinner))
	}
	out = append(out, visibility(SuccessModal, vm.SuccessVisible))
	return out
}

func partsView(vm SignoffViewModel) []Instruction {
	switch vm.PartsState {
	case PartsLoading:
		return []Instruction{replaceChildren(PartsContainer), show(PartSelection)}
	case PartsEmpty:
		return []Instruction{
			replaceChildren(PartsContainer, Element{Tag: "div", Class: "alert alert-info", Text: noPartsText}),
			show(PartSelection),
		}
	case PartsListed:
		items := make([]Element, 0, len(vm.Parts))
		for _, p := range vm.Parts {
			class := "list-group-item list-group-item-action part-item"
			if p.Selected {
				class += " active"
			}
			badge := Element{Tag: "span", ID: "status-" + strconv.FormatUint(uint64(p.Part.ID), 10), Class: "status-badge"}
			if p.Status != "" {
				badge.Class += " " + string(p.Status)
				badge.Text = p.Status.Title()
			}
			items = append(items, Element{
				Tag:      "a",
				Class:    class,
				Attrs:    map[string]string{"data-part-id": strconv.FormatUint(uint64(p.Part.ID), 10)},
				Children: []Element{{Tag: "strong", Text: p.Part.Name}, badge},
			})
		}
		return []Instruction{replaceChildren(PartsContainer, items...), show(PartSelection)}
	default:
		return []Instruction{replaceChildren(PartsContainer), hide(PartSelection)}
	}
}

func formView(vm SignoffViewModel) []Instruction {
	if !vm.FormVisible {
		return []Instruction{
			hide(GradingForm),
			show(InitialMessage),
			replaceChildren(CriteriaContainer),
			replaceChildren(EvaluationContainer),
		}
	}

	criteria := make([]Element, 0, len(vm.Criteria)+1)
	criteria = append(criteria, Element{Tag: "th", Text: "Quality Criteria"})
	for _, row := range vm.Criteria {
		criteria = append(criteria, Element{
			Tag:      "tr",
			Attrs:    map[string]string{"name": "criteria_" + row.Criterion.ID},
			Children: append([]Element{{Tag: "td", Text: row.Criterion.Name}}, levelCells(row.Level)...),
		})
	}

	evaluation := make([]Element, 0, len(vm.Evaluation)+1)
	evaluation = append(evaluation, Element{Tag: "th", Text: "Evaluation Sheet"})
	for _, row := range vm.Evaluation {
		evaluation = append(evaluation, Element{
			Tag:   "tr",
			Attrs: map[string]string{"name": "eval_" + row.Criterion.Key},
			Children: []Element{
				{Tag: "td", Text: row.Criterion.Name},
				{Tag: "input", Class: "form-control form-control-sm", Attrs: map[string]string{
					"name":  "eval_" + row.Criterion.Key + "_max",
					"value": strconv.FormatFloat(row.MaxMarks, 'f', -1, 64),
				}},
				statusSelect(row.Status),
			},
		})
	}

	return []Instruction{
		setText(GradingHeader, vm.PartName),
		setText(LabBadge, vm.LabName),
		replaceChildren(CriteriaContainer, criteria...),
		replaceChildren(EvaluationContainer, evaluation...),
		replaceChildren(OverallScore, levelCells(vm.Overall)...),
		setValue(Comments, vm.Comments),
		hide(InitialMessage),
		show(GradingForm),
	}
}

func levelCells(selected model.QualityLevel) []Element {
	cells := make([]Element, 0, len(model.QualityLevels))
	for _, level := range model.QualityLevels {
		attrs := map[string]string{"type": "radio", "value": strconv.Itoa(int(level)), "title": level.Label()}
		if level == selected {
			attrs["checked"] = "checked"
		}
		cells = append(cells, Element{Tag: "input", Attrs: attrs})
	}
	return cells
}

func statusSelect(selected model.EvaluationStatus) Element {
	options := make([]Element, 0, len(model.EvaluationStatuses))
	for _, s := range model.EvaluationStatuses {
		attrs := map[string]string{"value": string(s)}
		if s == selected {
			attrs["selected"] = "selected"
		}
		options = append(options, Element{Tag: "option", Text: s.Label(), Attrs: attrs})
	}
	return Element{Tag: "select", Children: options}
}

func historyNodes(history []model.HistoryEntry) []Element {
	nodes := make([]Element, 0, len(history))
	for _, h := range history {
		comments := h.Comments
		if comments == "" {
			comments = noCommentsText
		}
		nodes = append(nodes, Element{
			Tag:   "div",
			Class: "history-item " + string(h.Status),
			Children: []Element{
				{Tag: "strong", Text: h.Instructor},
				{Tag: "span", Class: "small text-muted", Text: formatHistoryDate(h.DateUpdated)},
				{Tag: "span", Class: "badge bg-" + h.Status.Color(), Text: string(h.Status)},
				{Tag: "p", Class: "small", Text: comments},
			},
		})
	}
	return nodes
}

func formatHistoryDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(historyLayout)
}
