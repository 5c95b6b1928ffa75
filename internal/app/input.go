package app

import (
	"regexp"
	"strings"

	"github.com/bigmoostache/context-pilot/internal/state"
)

// Input is either a slash command, a bare source id, or chat text.

type inputAction interface{ isAction() }

type actAddSource struct{ src *state.ContextSource }
type actDropSource struct{ id string }
type actJump struct{ id string }
type actCheck struct{}
type actChat struct{ text string }
type actError struct{ msg string }

func (actAddSource) isAction()  {}
func (actDropSource) isAction() {}
func (actJump) isAction()       {}
func (actCheck) isAction()      {}
func (actChat) isAction()       {}
func (actError) isAction()      {}

var sourceIDPattern = regexp.MustCompile(`^p\d+$`)

// parseInput maps one submitted line to an action. A leading slash
// selects a command; a bare source id jumps to that source; everything
// else is a chat message.
func parseInput(line string) inputAction {
	line = strings.TrimSpace(line)
	if line == "" {
		return actError{msg: ""}
	}

	if sourceIDPattern.MatchString(line) {
		return actJump{id: line}
	}
	if !strings.HasPrefix(line, "/") {
		return actChat{text: line}
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/file":
		if len(args) != 1 {
			return actError{msg: "usage: /file <path>"}
		}
		return actAddSource{src: &state.ContextSource{Type: state.ContextFile, Path: args[0]}}

	case "/tree":
		src := &state.ContextSource{Type: state.ContextTree}
		if len(args) > 0 {
			src.Filter = args[0]
		}
		return actAddSource{src: src}

	case "/glob":
		if len(args) < 1 || len(args) > 2 {
			return actError{msg: "usage: /glob <pattern> [base]"}
		}
		src := &state.ContextSource{Type: state.ContextGlob, Pattern: args[0], BasePath: "."}
		if len(args) == 2 {
			src.BasePath = args[1]
		}
		return actAddSource{src: src}

	case "/grep":
		if len(args) < 1 || len(args) > 3 {
			return actError{msg: "usage: /grep <pattern> [filepattern] [path]"}
		}
		src := &state.ContextSource{Type: state.ContextGrep, Pattern: args[0], BasePath: "."}
		if len(args) >= 2 {
			src.FilePattern = args[1]
		}
		if len(args) == 3 {
			src.BasePath = args[2]
		}
		return actAddSource{src: src}

	case "/tmux":
		if len(args) < 1 {
			return actError{msg: "usage: /tmux <pane> [note]"}
		}
		return actAddSource{src: &state.ContextSource{
			Type:     state.ContextTmux,
			PaneID:   args[0],
			PaneNote: strings.Join(args[1:], " "),
		}}

	case "/note", "/notes":
		if len(args) == 0 {
			return actError{msg: "usage: /note <text>"}
		}
		return actAddSource{src: &state.ContextSource{
			Type: state.ContextNotes,
			Note: strings.Join(args, " "),
		}}

	case "/drop", "/rm":
		if len(args) != 1 || !sourceIDPattern.MatchString(args[0]) {
			return actError{msg: "usage: /drop <p-id>"}
		}
		return actDropSource{id: args[0]}

	case "/check":
		return actCheck{}

	default:
		return actError{msg: "unknown command " + cmd}
	}
}
