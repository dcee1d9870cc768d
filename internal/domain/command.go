package domain

import "strings"

// CommandKind enumerates every command the bot understands. The parser is
// the only producer; the flow state machine switches over it exhaustively.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdStart
	CmdNext
	CmdStop
	CmdStatus
	CmdHelp
	CmdRules
	CmdRanking
	CmdAnswer
	CmdAsk
)

// Command is the parsed form of an inbound text message.
type Command struct {
	Kind CommandKind
	// Option is the zero-based option index; valid only for CmdAnswer.
	Option int
	// Text is the free-text question payload; valid only for CmdAsk.
	Text string
}

const askPrefix = "ASK"

// ParseCommand normalizes raw message text into a Command. It is pure and
// total: unrecognized input classifies as CmdUnknown, it never fails.
// Keyword matching is case-insensitive and ignores surrounding whitespace.
func ParseCommand(raw string) Command {
	trimmed := strings.TrimSpace(raw)
	upper := strings.ToUpper(trimmed)

	switch upper {
	case "START":
		return Command{Kind: CmdStart}
	case "NEXT":
		return Command{Kind: CmdNext}
	case "STOP":
		return Command{Kind: CmdStop}
	case "STATUS":
		return Command{Kind: CmdStatus}
	case "HELP":
		return Command{Kind: CmdHelp}
	case "RULES":
		return Command{Kind: CmdRules}
	case "RANKING":
		return Command{Kind: CmdRanking}
	}

	if len(upper) == 1 {
		for i, label := range OptionLabels {
			if upper == label {
				return Command{Kind: CmdAnswer, Option: i}
			}
		}
	}

	if strings.HasPrefix(upper, askPrefix) {
		rest := trimmed[len(askPrefix):]
		if rest == "" {
			// "ASK" with no payload is not a question.
			return Command{Kind: CmdUnknown}
		}
		if rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n' {
			payload := strings.TrimSpace(rest)
			if payload == "" {
				return Command{Kind: CmdUnknown}
			}
			return Command{Kind: CmdAsk, Text: payload}
		}
	}

	return Command{Kind: CmdUnknown}
}
