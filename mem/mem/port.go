package mem

import (
	"fmt"

	"github.com/sarchlab/cxlsim/sim"
)

// HookPosPortSend marks when a port hands a transaction to its peer and the
// peer accepts it.
var HookPosPortSend = &sim.HookPos{Name: "Port Send"}

// HookPosPortRefused marks when a peer refuses a transaction.
var HookPosPortRefused = &sim.HookPos{Name: "Port Refused"}

// A Port is one end of a point-to-point memory link.
type Port interface {
	sim.Named
	sim.Hookable

	IsConnected() bool
}

// RequestPortOwner is the component side of a RequestPort. It receives the
// responses and the request retries that come back over the link.
type RequestPortOwner interface {
	// RecvResponse returns false if the owner cannot take the response now.
	// The peer then waits for SendRetryResp.
	RecvResponse(t *Transaction) bool

	// RecvReqRetry tells the owner that a previously refused request may now
	// be sent again.
	RecvReqRetry()
}

// RangeChangeListener is optionally implemented by a RequestPortOwner that
// wants to know when the peer's address ranges change.
type RangeChangeListener interface {
	RecvRangeChange()
}

// ResponsePortOwner is the component side of a ResponsePort.
type ResponsePortOwner interface {
	// RecvRequest returns false if the owner cannot take the request now. The
	// owner must then call SendRetryReq once the request may be resent.
	RecvRequest(t *Transaction) bool

	// RecvRespRetry tells the owner that a previously refused response may
	// now be sent again.
	RecvRespRetry()

	// RecvAtomic serves the request immediately and returns its latency.
	RecvAtomic(t *Transaction) sim.VTime

	// AddrRanges lists the address ranges served behind the port.
	AddrRanges() []AddrRange
}

// A RequestPort sends requests and receives responses.
type RequestPort struct {
	sim.HookableBase

	name  string
	owner RequestPortOwner
	peer  *ResponsePort
}

// NewRequestPort creates a RequestPort owned by owner.
func NewRequestPort(name string, owner RequestPortOwner) *RequestPort {
	sim.NameMustBeValid(name)

	return &RequestPort{name: name, owner: owner}
}

// Name returns the name of the port.
func (p *RequestPort) Name() string {
	return p.name
}

// IsConnected returns true if the port has a peer.
func (p *RequestPort) IsConnected() bool {
	return p.peer != nil
}

// Peer returns the connected response port, or nil.
func (p *RequestPort) Peer() *ResponsePort {
	return p.peer
}

// SendRequest offers a request to the peer. It returns false if the peer
// refuses it; the peer will call back with a request retry later.
func (p *RequestPort) SendRequest(t *Transaction) bool {
	p.mustBeConnected()

	ok := p.peer.owner.RecvRequest(t)
	p.invokeSendHook(ok, t)

	return ok
}

// SendRetryResp tells the peer that a refused response can be resent.
func (p *RequestPort) SendRetryResp() {
	p.mustBeConnected()
	p.peer.owner.RecvRespRetry()
}

// SendAtomic serves a request immediately and returns the peer's latency.
func (p *RequestPort) SendAtomic(t *Transaction) sim.VTime {
	p.mustBeConnected()

	return p.peer.owner.RecvAtomic(t)
}

// AddrRanges returns the address ranges served by the peer.
func (p *RequestPort) AddrRanges() []AddrRange {
	p.mustBeConnected()

	return p.peer.owner.AddrRanges()
}

func (p *RequestPort) invokeSendHook(ok bool, t *Transaction) {
	if p.NumHooks() == 0 {
		return
	}

	pos := HookPosPortSend
	if !ok {
		pos = HookPosPortRefused
	}

	p.InvokeHook(sim.HookCtx{Domain: p, Pos: pos, Item: t})
}

func (p *RequestPort) mustBeConnected() {
	if p.peer == nil {
		panic(fmt.Sprintf("port %s is not connected", p.name))
	}
}

// A ResponsePort receives requests and sends responses.
type ResponsePort struct {
	sim.HookableBase

	name  string
	owner ResponsePortOwner
	peer  *RequestPort
}

// NewResponsePort creates a ResponsePort owned by owner.
func NewResponsePort(name string, owner ResponsePortOwner) *ResponsePort {
	sim.NameMustBeValid(name)

	return &ResponsePort{name: name, owner: owner}
}

// Name returns the name of the port.
func (p *ResponsePort) Name() string {
	return p.name
}

// IsConnected returns true if the port has a peer.
func (p *ResponsePort) IsConnected() bool {
	return p.peer != nil
}

// Peer returns the connected request port, or nil.
func (p *ResponsePort) Peer() *RequestPort {
	return p.peer
}

// SendResponse offers a response to the peer. It returns false if the peer
// refuses it; the peer will call back with a response retry later.
func (p *ResponsePort) SendResponse(t *Transaction) bool {
	p.mustBeConnected()

	ok := p.peer.owner.RecvResponse(t)

	if p.NumHooks() > 0 {
		pos := HookPosPortSend
		if !ok {
			pos = HookPosPortRefused
		}

		p.InvokeHook(sim.HookCtx{Domain: p, Pos: pos, Item: t})
	}

	return ok
}

// SendRetryReq tells the peer that a refused request can be resent.
func (p *ResponsePort) SendRetryReq() {
	p.mustBeConnected()
	p.peer.owner.RecvReqRetry()
}

// SendRangeChange notifies the peer that AddrRanges may have changed.
func (p *ResponsePort) SendRangeChange() {
	p.mustBeConnected()

	if l, ok := p.peer.owner.(RangeChangeListener); ok {
		l.RecvRangeChange()
	}
}

// AddrRanges returns the ranges served by the owner of this port.
func (p *ResponsePort) AddrRanges() []AddrRange {
	return p.owner.AddrRanges()
}

func (p *ResponsePort) mustBeConnected() {
	if p.peer == nil {
		panic(fmt.Sprintf("port %s is not connected", p.name))
	}
}

// Connect binds a request port to a response port. Both must be unconnected.
func Connect(req *RequestPort, rsp *ResponsePort) {
	if req.peer != nil {
		panic(fmt.Sprintf(
			"port %s already connected to %s, now connecting to %s",
			req.name, req.peer.name, rsp.name))
	}

	if rsp.peer != nil {
		panic(fmt.Sprintf(
			"port %s already connected to %s, now connecting to %s",
			rsp.name, rsp.peer.name, req.name))
	}

	req.peer = rsp
	rsp.peer = req
}
