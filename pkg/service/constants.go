package service

// Redis keys
const (
	KeyLink        = "interlink"         // hash mirroring link + display state
	KeyCommandList = "scooter:interlink" // list of CBOR request descriptors

	ChannelEvents   = "interlink:events"   // navigation button presses
	ChannelMessages = "interlink:messages" // free-text display messages
	ChannelResults  = "interlink:results"  // request outcomes, CBOR
)

// Power instructions understood by the display.
const (
	PowerInstructionOff     = 0
	PowerInstructionOn      = 1
	PowerInstructionStandby = 2
)

// Defaults applied to command-list requests that omit them.
const (
	DefaultRequestTimeoutMs = 100
	DefaultRequestRetries   = 2
)

// statsIntervalMs is how often the drop counters are mirrored into Redis.
const statsIntervalMs = 5000
