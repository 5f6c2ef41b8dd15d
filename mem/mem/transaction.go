package mem

import (
	"fmt"

	"github.com/sarchlab/cxlsim/sim"
)

// Kind tells whether a transaction reads or writes memory.
type Kind int

// Transaction kinds.
const (
	KindRead Kind = iota
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "Read"
	case KindWrite:
		return "Write"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Cmd is the link-protocol command tag carried by a transaction.
type Cmd int

// Link-protocol commands. CmdM2SReq tags read-type requests and CmdM2SRwD
// tags write-type requests that carry data.
const (
	CmdNone Cmd = iota
	CmdM2SReq
	CmdM2SRwD
)

func (c Cmd) String() string {
	switch c {
	case CmdNone:
		return "None"
	case CmdM2SReq:
		return "M2SReq"
	case CmdM2SRwD:
		return "M2SRwD"
	default:
		return fmt.Sprintf("Cmd(%d)", int(c))
	}
}

// A Transaction is a single read or write access that travels through ports.
// The same object is carried on the request and the response leg.
type Transaction struct {
	ID      string
	Address uint64
	Size    uint64
	Kind    Kind
	Cmd     Cmd

	// NeedsResponse is false for posted writes that complete on delivery.
	NeedsResponse bool

	// CacheResponding marks a request that a cache has already claimed.
	CacheResponding bool

	IsResponse bool

	// IssueTime is when the original requester created the transaction.
	IssueTime sim.VTime

	// HeaderDelay and PayloadDelay are link delays the receiver has not yet
	// accounted for.
	HeaderDelay  sim.VTime
	PayloadDelay sim.VTime

	Data []byte
}

// IsRead returns true if the transaction reads memory.
func (t *Transaction) IsRead() bool {
	return t.Kind == KindRead
}

// IsWrite returns true if the transaction writes memory.
func (t *Transaction) IsWrite() bool {
	return t.Kind == KindWrite
}

// TakeReceiveDelay returns the pending header and payload delay and clears
// both fields.
func (t *Transaction) TakeReceiveDelay() sim.VTime {
	d := t.HeaderDelay + t.PayloadDelay
	t.HeaderDelay = 0
	t.PayloadDelay = 0

	return d
}

// MakeResponse turns the request into its own response.
func (t *Transaction) MakeResponse() {
	if !t.NeedsResponse {
		panic(fmt.Sprintf("transaction %s does not expect a response", t.ID))
	}

	t.IsResponse = true
	t.NeedsResponse = false
}

func (t *Transaction) String() string {
	return fmt.Sprintf("%s %s addr 0x%x size %d", t.ID, t.Kind, t.Address, t.Size)
}

// TransactionBuilder can build transactions.
type TransactionBuilder struct {
	address, byteSize uint64
	kind              Kind
	cmd               Cmd
	posted            bool
	issueTime         sim.VTime
	headerDelay       sim.VTime
	payloadDelay      sim.VTime
	data              []byte
}

// WithAddress sets the address of the transaction to build.
func (b TransactionBuilder) WithAddress(address uint64) TransactionBuilder {
	b.address = address
	return b
}

// WithByteSize sets the byte size of the transaction to build.
func (b TransactionBuilder) WithByteSize(byteSize uint64) TransactionBuilder {
	b.byteSize = byteSize
	return b
}

// AsRead makes the transaction a read tagged with CmdM2SReq.
func (b TransactionBuilder) AsRead() TransactionBuilder {
	b.kind = KindRead
	b.cmd = CmdM2SReq

	return b
}

// AsWrite makes the transaction a write tagged with CmdM2SRwD.
func (b TransactionBuilder) AsWrite() TransactionBuilder {
	b.kind = KindWrite
	b.cmd = CmdM2SRwD

	return b
}

// WithCmd overrides the command tag.
func (b TransactionBuilder) WithCmd(cmd Cmd) TransactionBuilder {
	b.cmd = cmd
	return b
}

// Posted marks the transaction as not expecting a response.
func (b TransactionBuilder) Posted() TransactionBuilder {
	b.posted = true
	return b
}

// WithIssueTime sets the time the transaction is created.
func (b TransactionBuilder) WithIssueTime(t sim.VTime) TransactionBuilder {
	b.issueTime = t
	return b
}

// WithHeaderDelay sets the pending header delay.
func (b TransactionBuilder) WithHeaderDelay(d sim.VTime) TransactionBuilder {
	b.headerDelay = d
	return b
}

// WithPayloadDelay sets the pending payload delay.
func (b TransactionBuilder) WithPayloadDelay(d sim.VTime) TransactionBuilder {
	b.payloadDelay = d
	return b
}

// WithData sets the data carried by a write.
func (b TransactionBuilder) WithData(data []byte) TransactionBuilder {
	b.data = data
	return b
}

// Build creates a new Transaction.
func (b TransactionBuilder) Build() *Transaction {
	t := &Transaction{
		ID:            sim.GetIDGenerator().Generate(),
		Address:       b.address,
		Size:          b.byteSize,
		Kind:          b.kind,
		Cmd:           b.cmd,
		NeedsResponse: !b.posted,
		IssueTime:     b.issueTime,
		HeaderDelay:   b.headerDelay,
		PayloadDelay:  b.payloadDelay,
		Data:          b.data,
	}

	if t.Kind == KindWrite && t.Size == 0 {
		t.Size = uint64(len(t.Data))
	}

	return t
}
