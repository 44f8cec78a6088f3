package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lshigami/labsignoff/internal/eventloop"
	"github.com/lshigami/labsignoff/internal/service"
	"github.com/lshigami/labsignoff/internal/view"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

const consoleHelp = `Commands:
  type <text>            set the search box and fire an input event
  down | up | enter | esc
  click <n> | hover <n>  act on result row n
  focus | blur           focus the search box / click outside it
  lab <id> [name]        choose a lab (0 clears)
  part <id>              choose a part
  overall <0-4>          overall score
  crit <id> <0-4>        quality level for a criterion
  eval <key> <ER|MR|MM|IR|ND>
  max <key> <marks>      evaluation max marks
  comment <text>
  submit | clear | reset | new
  dismiss <alert id>
  show | help | quit`

// Console turns typed lines into UI events and prints the document.
type Console struct {
	in        io.Reader
	out       io.Writer
	loop      *eventloop.Loop
	doc       *view.Document
	input     *view.Field
	typeahead service.SearchTypeahead
	session   service.SignoffSession
}

func NewConsole(in io.Reader, out io.Writer, loop *eventloop.Loop, doc *view.Document, typeahead service.SearchTypeahead, session service.SignoffSession) *Console {
	return &Console{
		in:        in,
		out:       out,
		loop:      loop,
		doc:       doc,
		input:     doc.Field(view.SearchInput),
		typeahead: typeahead,
		session:   session,
	}
}

func StartConsole(lc fx.Lifecycle, sd fx.Shutdowner, loop *eventloop.Loop, doc *view.Document, typeahead service.SearchTypeahead, session service.SignoffSession) {
	c := NewConsole(os.Stdin, os.Stdout, loop, doc, typeahead, session)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				c.Run()
				if err := sd.Shutdown(); err != nil {
					log.Error().Err(err).Msg("Console: shutdown failed")
				}
			}()
			return nil
		},
	})
}

// Run reads commands until quit or end of input.
func (c *Console) Run() {
	fmt.Fprintf(c.out, "Student search (%s)\n%s\n", c.typeahead.Placeholder(), consoleHelp)
	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			break
		}
		quit, err := c.Execute(scanner.Text())
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
			continue
		}
		if quit {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Console: read failed")
	}
}

// Execute runs one command line. Events are asynchronous; "show" prints the
// document once everything queued so far has been applied.
func (c *Console) Execute(line string) (bool, error) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	cmd = strings.ToLower(cmd)
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch cmd {
	case "":
	case "type":
		c.input.SetValue(rest)
		c.typeahead.HandleInput()
	case "down":
		c.typeahead.HandleKey(service.KeyDown)
	case "up":
		c.typeahead.HandleKey(service.KeyUp)
	case "enter":
		c.typeahead.HandleKey(service.KeyEnter)
	case "esc":
		c.typeahead.HandleKey(service.KeyEscape)
	case "focus":
		c.typeahead.HandleFocus()
	case "blur":
		c.typeahead.HandleOutsideClick()
	case "click", "hover":
		n, err := intArg(args, 0)
		if err != nil {
			return false, err
		}
		if cmd == "click" {
			c.typeahead.HandleClick(n)
		} else {
			c.typeahead.HandleHover(n)
		}
	case "lab":
		id, err := uintArg(args, 0)
		if err != nil {
			return false, err
		}
		name := strings.Join(args[1:], " ")
		if name == "" && id != 0 {
			name = fmt.Sprintf("Lab %d", id)
		}
		c.session.SelectLab(id, name)
	case "part":
		id, err := uintArg(args, 0)
		if err != nil {
			return false, err
		}
		c.session.SelectPart(id)
	case "overall":
		n, err := intArg(args, 0)
		if err != nil {
			return false, err
		}
		c.session.SetOverallScore(n)
	case "crit":
		n, err := intArg(args, 1)
		if err != nil {
			return false, err
		}
		c.session.SetCriterionLevel(args[0], n)
	case "eval":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: eval <key> <status>")
		}
		c.session.SetEvaluationStatus(args[0], strings.ToUpper(args[1]))
	case "max":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: max <key> <marks>")
		}
		marks, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return false, fmt.Errorf("invalid marks %q: %w", args[1], err)
		}
		c.session.SetEvaluationMaxMarks(args[0], marks)
	case "comment":
		c.session.SetComments(rest)
	case "submit":
		c.session.Submit()
	case "clear":
		c.session.ClearForm()
	case "reset":
		c.session.Reset()
	case "new":
		c.session.NewSignoff()
	case "dismiss":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: dismiss <alert id>")
		}
		c.session.DismissAlert(args[0])
	case "show":
		c.loop.Flush()
		if _, err := c.doc.WriteTo(c.out); err != nil {
			return false, err
		}
	case "help":
		fmt.Fprintln(c.out, consoleHelp)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", args[i], err)
	}
	return n, nil
}

func uintArg(args []string, i int) (uint, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	n, err := strconv.ParseUint(args[i], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", args[i], err)
	}
	return uint(n), nil
}
