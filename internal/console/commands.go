package console

import (
	"fmt"
	"strconv"
	"strings"
)

type CommandKind int

const (
	CmdSend CommandKind = iota
	CmdNextDay
	CmdPrevDay
	CmdImage
	CmdAutoRead
	CmdPause
	CmdResume
	CmdStop
	CmdSay
	CmdHelp
	CmdQuit
)

// Command is one parsed input line.
type Command struct {
	Kind CommandKind
	// Text is the message for CmdSend.
	Text string
	// Activity is the 1-based activity number for CmdImage.
	Activity int
	// Forward selects the next image; otherwise the previous one.
	Forward bool
	// On is the requested auto-read state.
	On bool
}

const Help = `Commands:
  /next, /prev           move between itinerary days
  /img <n> next|prev     page the photos of activity n
  /autoread on|off       read replies aloud
  /say                   read the last reply aloud
  /pause, /resume, /stop control speech
  /quit                  exit
Anything else is sent as a message.`

// ParseCommand parses a line of terminal input. Lines not starting with "/" are
// messages.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CmdSend, Text: line}, nil
	}
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "/next":
		return Command{Kind: CmdNextDay}, nil
	case "/prev":
		return Command{Kind: CmdPrevDay}, nil
	case "/img":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("usage: /img <n> next|prev")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("activity number must be a positive integer, got %q", args[0])
		}
		switch strings.ToLower(args[1]) {
		case "next":
			return Command{Kind: CmdImage, Activity: n, Forward: true}, nil
		case "prev":
			return Command{Kind: CmdImage, Activity: n}, nil
		}
		return Command{}, fmt.Errorf("usage: /img <n> next|prev")
	case "/autoread":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: /autoread on|off")
		}
		switch strings.ToLower(args[0]) {
		case "on":
			return Command{Kind: CmdAutoRead, On: true}, nil
		case "off":
			return Command{Kind: CmdAutoRead}, nil
		}
		return Command{}, fmt.Errorf("usage: /autoread on|off")
	case "/pause":
		return Command{Kind: CmdPause}, nil
	case "/resume":
		return Command{Kind: CmdResume}, nil
	case "/stop":
		return Command{Kind: CmdStop}, nil
	case "/say":
		return Command{Kind: CmdSay}, nil
	case "/help":
		return Command{Kind: CmdHelp}, nil
	case "/quit", "/exit":
		return Command{Kind: CmdQuit}, nil
	}
	return Command{}, fmt.Errorf("unknown command %s (try /help)", name)
}
