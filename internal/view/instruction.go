// Package view turns component view models into render instructions and
// applies them to an in-memory document.
package view

type Op string

const (
	OpShow            Op = "show"
	OpHide            Op = "hide"
	OpSetText         Op = "set_text"
	OpSetValue        Op = "set_value"
	OpReplaceChildren Op = "replace_children"
)

// Element ids shared by the components and the document layout.
const (
	SearchInput         = "student-search"
	SearchResults       = "student-search-results"
	StudentInfo         = "student-info"
	StudentName         = "student-name"
	StudentEmail        = "student-email"
	PartSelection       = "part-selection"
	PartsContainer      = "parts-container"
	InitialMessage      = "initial-message"
	GradingForm         = "grading-form"
	GradingHeader       = "grading-header"
	LabBadge            = "lab-badge"
	CriteriaContainer   = "criteria-container"
	EvaluationContainer = "evaluation-container"
	OverallScore        = "overall-score"
	Comments            = "comments"
	HistoryCard         = "history-card"
	SignoffHistory      = "signoff-history"
	Alerts              = "alerts"
	SuccessModal        = "success-modal"
	Spinner             = "spinner"
)

// Element is a node of rendered output. It has no behaviour.
type Element struct {
	Tag      string
	ID       string
	Class    string
	Text     string
	Attrs    map[string]string
	Children []Element
}

type Instruction struct {
	Op     Op
	Target string
	Text   string
	Nodes  []Element
}

// Renderer applies instructions. Components call it from the event loop.
type Renderer interface {
	Render(instructions []Instruction)
}

func show(id string) Instruction { return Instruction{Op: OpShow, Target: id} }
func hide(id string) Instruction { return Instruction{Op: OpHide, Target: id} }

func visibility(id string, visible bool) Instruction {
	if visible {
		return show(id)
	}
	return hide(id)
}

func setText(id, text string) Instruction {
	return Instruction{Op: OpSetText, Target: id, Text: text}
}

func setValue(id, value string) Instruction {
	return Instruction{Op: OpSetValue, Target: id, Text: value}
}

func replaceChildren(id string, nodes ...Element) Instruction {
	return Instruction{Op: OpReplaceChildren, Target: id, Nodes: nodes}
}
