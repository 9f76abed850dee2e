package interlink

// Command identifiers shared with the display firmware.
const (
	CmdPower     uint16 = 0x0001
	CmdPage      uint16 = 0x0002
	CmdMsg       uint16 = 0x0003
	CmdWarn      uint16 = 0x0004
	CmdErr       uint16 = 0x0005
	CmdInit      uint16 = 0x0006
	CmdInitComp  uint16 = 0x0007
	CmdMoveLeft  uint16 = 0x0008
	CmdMoveRight uint16 = 0x0009
	CmdMoveUp    uint16 = 0x000A
	CmdMoveDown  uint16 = 0x000B
	CmdBack      uint16 = 0x000C
	CmdEnter     uint16 = 0x000D
)

// CommandType tags a decoded command.
type CommandType uint8

const (
	CommandUnknown CommandType = iota
	CommandPower
	CommandPage
	CommandMsg
	CommandWarn
	CommandErr
	CommandInit
	CommandInitComp
	CommandMoveLeft
	CommandMoveRight
	CommandMoveUp
	CommandMoveDown
	CommandBack
	CommandEnter
)

func (t CommandType) String() string {
	switch t {
	case CommandPower:
		return "power"
	case CommandPage:
		return "page"
	case CommandMsg:
		return "msg"
	case CommandWarn:
		return "warn"
	case CommandErr:
		return "err"
	case CommandInit:
		return "init"
	case CommandInitComp:
		return "init-complete"
	case CommandMoveLeft:
		return "move-left"
	case CommandMoveRight:
		return "move-right"
	case CommandMoveUp:
		return "move-up"
	case CommandMoveDown:
		return "move-down"
	case CommandBack:
		return "back"
	case CommandEnter:
		return "enter"
	default:
		return "unknown"
	}
}

// initMessageMax caps the free-text part of an init progress report.
const initMessageMax = 15

// PowerCommand requests a power state change.
type PowerCommand struct {
	Instruction byte
}

// PageCommand selects a display page.
type PageCommand struct {
	Page byte
}

// InitCommand reports boot progress.
type InitCommand struct {
	Percent byte
	Message string
}

// Command is the decoded form of an accepted packet: one tag plus the
// variant payload that matches it. The header fields are carried along so
// consumers can acknowledge without keeping the raw packet around.
type Command struct {
	Type  CommandType
	Ver   byte
	Flags byte
	Cmd   uint16
	Seq   byte
	Len   byte

	Power PowerCommand // CommandPower
	Page  PageCommand  // CommandPage
	Text  string       // CommandMsg, CommandWarn, CommandErr
	Init  InitCommand  // CommandInit
}

// ParseCommand interprets the opaque body of an accepted packet as a typed
// command. It reports false for unknown command identifiers and for bodies
// too short for their command; the navigation commands carry no payload and
// ignore any body.
func ParseCommand(pkt *Packet) (Command, bool) {
	cmd := Command{
		Type:  CommandUnknown,
		Ver:   pkt.Ver,
		Flags: pkt.Flags,
		Cmd:   pkt.Cmd,
		Seq:   pkt.Seq,
		Len:   pkt.Len,
	}
	body := pkt.Payload()

	switch pkt.Cmd {
	case CmdPower:
		if len(body) < 1 {
			return cmd, false
		}
		cmd.Type = CommandPower
		cmd.Power.Instruction = body[0]
	case CmdPage:
		if len(body) < 1 {
			return cmd, false
		}
		cmd.Type = CommandPage
		cmd.Page.Page = body[0]
	case CmdMsg:
		cmd.Type = CommandMsg
		cmd.Text = string(body)
	case CmdWarn:
		cmd.Type = CommandWarn
		cmd.Text = string(body)
	case CmdErr:
		cmd.Type = CommandErr
		cmd.Text = string(body)
	case CmdInit:
		if len(body) < 1 {
			return cmd, false
		}
		cmd.Type = CommandInit
		cmd.Init.Percent = body[0]
		msg := body[1:]
		if len(msg) > initMessageMax {
			msg = msg[:initMessageMax]
		}
		cmd.Init.Message = string(msg)
	case CmdInitComp:
		cmd.Type = CommandInitComp
	case CmdMoveLeft:
		cmd.Type = CommandMoveLeft
	case CmdMoveRight:
		cmd.Type = CommandMoveRight
	case CmdMoveUp:
		cmd.Type = CommandMoveUp
	case CmdMoveDown:
		cmd.Type = CommandMoveDown
	case CmdBack:
		cmd.Type = CommandBack
	case CmdEnter:
		cmd.Type = CommandEnter
	default:
		return cmd, false
	}

	return cmd, true
}
