package view

import (
	"strconv"

	"github.com/lshigami/labsignoff/internal/model"
)

type PlaceholderKind string

const (
	PlaceholderNone    PlaceholderKind = ""
	PlaceholderLoading PlaceholderKind = "loading"
	PlaceholderEmpty   PlaceholderKind = "no-results"
	PlaceholderError   PlaceholderKind = "error"
)

type TypeaheadViewModel struct {
	ContainerID string
	Visible     bool
	Placeholder PlaceholderKind
	// PlaceholderText is shown instead of rows when Placeholder is set.
	PlaceholderText string
	Results         []model.SearchResult
	Highlighted     int
}

// TypeaheadView renders the result panel. A hidden panel is also emptied.
func TypeaheadView(vm TypeaheadViewModel) []Instruction {
	if !vm.Visible {
		return []Instruction{hide(vm.ContainerID), replaceChildren(vm.ContainerID)}
	}

	if vm.Placeholder != PlaceholderNone {
		return []Instruction{
			replaceChildren(vm.ContainerID, Element{
				Tag:   "div",
				Class: "typeahead-placeholder " + string(vm.Placeholder),
				Text:  vm.PlaceholderText,
			}),
			show(vm.ContainerID),
		}
	}

	rows := make([]Element, 0, len(vm.Results))
	for i, r := range vm.Results {
		class := "typeahead-item"
		if i == vm.Highlighted {
			class += " active"
		}
		rows = append(rows, Element{
			Tag:   "div",
			Class: class,
			Attrs: map[string]string{"data-index": strconv.Itoa(i)},
			Children: []Element{
				{Tag: "strong", Text: r.Name},
				{Tag: "small", Class: "text-muted", Text: "ID: " + r.StudentID},
			},
		})
	}
	return []Instruction{replaceChildren(vm.ContainerID, rows...), show(vm.ContainerID)}
}
