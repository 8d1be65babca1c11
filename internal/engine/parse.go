package engine

import "strings"

// Command is the leading token of an operator message.
type Command string

const (
	CmdStart  Command = "/start"
	CmdAdd    Command = "/add"
	CmdRemove Command = "/remove"
	CmdList   Command = "/list"
	CmdWake   Command = "/wake"
)

var commands = map[Command]bool{
	CmdStart:  true,
	CmdAdd:    true,
	CmdRemove: true,
	CmdList:   true,
	CmdWake:   true,
}

func (c Command) Known() bool {
	return commands[c]
}

// Parse splits text on whitespace into a command and its arguments. A
// "@botname" suffix on the command, as chat clients add in groups, is
// dropped.
func Parse(text string) (Command, []string) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return "", nil
	}
	cmd := tokens[0]
	if strings.HasPrefix(cmd, "/") {
		if i := strings.IndexByte(cmd, '@'); i > 0 {
			cmd = cmd[:i]
		}
	}
	return Command(cmd), tokens[1:]
}
