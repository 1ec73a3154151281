package transaction

// SFURequest is an opaque fixed-latency special-function-unit request
// (spec.md §3, §6). The simulator core never interprets Payload; it is
// whatever bytes the requesting unit (box/tri intersection pipelines,
// the atomic regfile) and the SFU agree on.
type SFURequest struct {
	Port    uint16
	Payload []byte
}

// SFUResult is the completion counterpart to an SFURequest.
type SFUResult struct {
	Port    uint16
	Payload []byte
}
