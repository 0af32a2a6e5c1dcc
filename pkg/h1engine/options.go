package h1engine

// NetworkPolicy is an external-collaborator stub for the proxy/SSL-CA/
// connection-limit decisions that sit above this engine (out of scope per
// §1): the engine never calls any of its methods itself. It exists purely
// so a caller embedding h1engine has one shared place to plug those
// decisions into Options, modeled on damianoneill-net's client.Config
// shape rather than invented from nothing.
type NetworkPolicy interface {
	// AllowConnect reports whether a connection to host:port is permitted.
	AllowConnect(host string, port int) bool
	// ProxyFor returns the proxy address to use for host, if any.
	ProxyFor(host string) (addr string, ok bool)
}

// Options configures a transfer started via StartRead. StartWrite takes no
// Options.
type Options struct {
	// OverwriteBody selects, for a read, whether delivered body bytes are
	// dropped from the internal buffer as they're handed to the Chunk
	// callback (streaming; the common case) or retained so the final Done
	// callback receives everything accumulated since the body began.
	OverwriteBody bool

	// Policy is threaded through for the caller's own use; see
	// NetworkPolicy's doc comment.
	Policy NetworkPolicy
}
