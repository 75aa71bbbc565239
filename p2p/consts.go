package p2p

// Genesis-critical constants. The port numbers and OneNHZ come from the
// network's original deployment parameters; MinHubEffectiveBalance has
// no canonical published value, so — like the fork heights in
// core/types — the number below is this implementation's own choice,
// recorded in DESIGN.md rather than silently invented.
const (
	// OneNHZ is the atomic-unit scale factor.
	OneNHZ = 100_000_000

	// MaxBalanceNHZ bounds any single account's whole-NHZ balance.
	MaxBalanceNHZ = 1_000_000_000

	// DefaultPublicPort is the inbound TCP port on mainnet.
	DefaultPublicPort = 7774
	// DefaultTestnetPort is the inbound TCP port on testnet.
	DefaultTestnetPort = 6874

	// MinHubEffectiveBalance is the minimum effective balance, in whole
	// NHZ, an account must hold for its hallmark to carry nonzero weight.
	// See DESIGN.md.
	MinHubEffectiveBalance = 1000

	// MaxNumberOfTransactions bounds a single processTransactions /
	// processBlock payload.
	MaxNumberOfTransactions = 255
	// MaxPayloadLength bounds the serialized size of such a payload.
	MaxPayloadLength = MaxNumberOfTransactions * 160

	// broadcastWorkerPoolSize is the fixed size of the outbound send
	// thread pool.
	broadcastWorkerPoolSize = 10
)
