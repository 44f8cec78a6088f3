package view

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/template"
)

type region struct {
	id      string
	parent  string
	visible bool
	text    string
	value   string
	nodes   []Element
}

type layoutEntry struct {
	id      string
	parent  string
	visible bool
}

// defaultLayout mirrors the signoff page. Children are only printed when
// their parent is visible.
var defaultLayout = []layoutEntry{
	{SearchInput, "", true},
	{SearchResults, "", false},
	{StudentInfo, "", false},
	{StudentName, StudentInfo, true},
	{StudentEmail, StudentInfo, true},
	{PartSelection, "", false},
	{PartsContainer, PartSelection, true},
	{InitialMessage, "", true},
	{GradingForm, "", false},
	{GradingHeader, GradingForm, true},
	{LabBadge, GradingForm, true},
	{CriteriaContainer, GradingForm, true},
	{EvaluationContainer, GradingForm, true},
	{OverallScore, GradingForm, true},
	{Comments, GradingForm, true},
	{HistoryCard, "", false},
	{SignoffHistory, HistoryCard, true},
	{Alerts, "", false},
	{SuccessModal, "", false},
	{Spinner, "", false},
}

var templateFuncs = template.FuncMap{
	"ucfirst": ucfirst,
	"indent":  func(depth int) string { return strings.Repeat("  ", depth) },
}

const documentTemplate = `{{range $r := .}}{{indent $r.Depth}}[{{ucfirst $r.ID}}]{{with $r.Text}} {{.}}{{end}}{{with $r.Value}} value={{printf "%q" .}}{{end}}
{{range $r.Lines}}{{indent $r.Depth}}  {{.}}
{{end}}{{end}}`

// Document is an in-memory page that instructions are applied to. It is safe
// for concurrent use so the console can print while the loop renders.
type Document struct {
	mu      sync.Mutex
	regions map[string]*region
	order   []string
	tmpl    *template.Template
}

func NewDocument() *Document {
	d := &Document{
		regions: make(map[string]*region, len(defaultLayout)),
		tmpl:    template.Must(template.New("document").Funcs(templateFuncs).Parse(documentTemplate)),
	}
	for _, e := range defaultLayout {
		d.regions[e.id] = &region{id: e.id, parent: e.parent, visible: e.visible}
		d.order = append(d.order, e.id)
	}
	return d
}

func (d *Document) region(id string) *region {
	r, ok := d.regions[id]
	if !ok {
		r = &region{id: id, visible: true}
		d.regions[id] = r
		d.order = append(d.order, id)
	}
	return r
}

func (d *Document) Render(instructions []Instruction) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, in := range instructions {
		r := d.region(in.Target)
		switch in.Op {
		case OpShow:
			r.visible = true
		case OpHide:
			r.visible = false
		case OpSetText:
			r.text = in.Text
		case OpSetValue:
			r.value = in.Text
		case OpReplaceChildren:
			r.nodes = append([]Element(nil), in.Nodes...)
		}
	}
}

func (d *Document) Visible(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[id]
	return ok && r.visible
}

func (d *Document) Text(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.regions[id]; ok {
		return r.text
	}
	return ""
}

func (d *Document) Value(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.regions[id]; ok {
		return r.value
	}
	return ""
}

func (d *Document) Children(id string) []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.regions[id]; ok {
		return append([]Element(nil), r.nodes...)
	}
	return nil
}

// Field is an input control backed by a document region.
type Field struct {
	doc *Document
	id  string
}

func (d *Document) Field(id string) *Field {
	return &Field{doc: d, id: id}
}

func (f *Field) Value() string { return f.doc.Value(f.id) }

func (f *Field) SetValue(v string) {
	f.doc.Render([]Instruction{setValue(f.id, v)})
}

type printedRegion struct {
	ID    string
	Depth int
	Text  string
	Value string
	Lines []string
}

// WriteTo prints every visible region as indented text.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	var printed []printedRegion
	for _, id := range d.order {
		r := d.regions[id]
		depth, ok := d.printable(r)
		if !ok {
			continue
		}
		p := printedRegion{ID: r.id, Depth: depth, Text: r.text, Value: r.value}
		for _, n := range r.nodes {
			p.Lines = append(p.Lines, summarize(n))
		}
		printed = append(printed, p)
	}
	d.mu.Unlock()

	var sb strings.Builder
	if err := d.tmpl.Execute(&sb, printed); err != nil {
		return 0, fmt.Errorf("render document: %w", err)
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

func (d *Document) String() string {
	var sb strings.Builder
	if _, err := d.WriteTo(&sb); err != nil {
		return err.Error()
	}
	return sb.String()
}

func (d *Document) printable(r *region) (int, bool) {
	depth := 0
	for cur := r; ; depth++ {
		if !cur.visible {
			return 0, false
		}
		if cur.parent == "" {
			return depth, true
		}
		parent, ok := d.regions[cur.parent]
		if !ok {
			return depth, true
		}
		cur = parent
	}
}

// summarize flattens an element into one line of text.
func summarize(e Element) string {
	var parts []string
	if idx, ok := e.Attrs["data-index"]; ok {
		parts = append(parts, "["+idx+"]")
	}
	if id, ok := e.Attrs["data-part-id"]; ok {
		parts = append(parts, "#"+id)
	}
	if strings.Contains(" "+e.Class+" ", " active ") {
		parts = append(parts, ">")
	}

	switch e.Tag {
	case "input":
		if e.Attrs["type"] == "radio" {
			mark := "( )"
			if e.Attrs["checked"] != "" {
				mark = "(*)"
			}
			parts = append(parts, mark+" "+e.Attrs["value"])
		} else {
			parts = append(parts, "["+e.Attrs["value"]+"]")
		}
	case "select":
		for _, opt := range e.Children {
			if opt.Attrs["selected"] != "" {
				parts = append(parts, "<"+opt.Attrs["value"]+">")
			}
		}
		return strings.Join(parts, " ")
	}

	if e.Text != "" {
		parts = append(parts, e.Text)
	}
	if e.ID != "" && strings.HasPrefix(e.ID, "alert-") {
		parts = append(parts, "("+strings.TrimPrefix(e.ID, "alert-")+")")
	}
	for _, c := range e.Children {
		if s := summarize(c); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func ucfirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
