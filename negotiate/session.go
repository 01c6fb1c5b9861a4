package negotiate

import (
	"fmt"

	"github.com/lnmplang/lnmp/errs"
)

// SessionState tracks the handshake progress of one connection.
type SessionState uint8

const (
	// SessionInit is the state before the local proposal is sent.
	SessionInit SessionState = iota
	// SessionProposed means the local capabilities were emitted and the
	// session awaits the remote summary.
	SessionProposed
	// SessionAccepted means both summaries intersected successfully.
	SessionAccepted
	// SessionRejected means the handshake failed and the connection must
	// not exchange frames.
	SessionRejected
)

func (s SessionState) String() string {
	switch s {
	case SessionInit:
		return "Init"
	case SessionProposed:
		return "Proposed"
	case SessionAccepted:
		return "Accepted"
	case SessionRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("SessionState(%d)", uint8(s))
	}
}

// Session drives one capability handshake. It is a single-owner state
// machine, one instance per connection.
type Session struct {
	negotiator *SchemaNegotiator
	reason     string
	agreed     Capabilities
	state      SessionState
}

// NewSession creates a handshake session speaking for the local peer.
func NewSession(local Capabilities) *Session {
	return &Session{negotiator: NewNegotiator(local)}
}

// State returns the current handshake state.
func (s *Session) State() SessionState {
	return s.state
}

// Local returns the local capabilities.
func (s *Session) Local() Capabilities {
	return s.negotiator.Local()
}

// Agreed returns the negotiated parameters once the session is
// accepted.
func (s *Session) Agreed() (Capabilities, bool) {
	if s.state != SessionAccepted {
		return Capabilities{}, false
	}

	return s.agreed, true
}

// RejectReason returns the failure description for a rejected session.
func (s *Session) RejectReason() string {
	return s.reason
}

// Propose emits the local capabilities in wire form and moves the
// session to the proposed state.
func (s *Session) Propose() ([]byte, error) {
	if s.state != SessionInit {
		return nil, fmt.Errorf("%w: propose in state %s", errs.ErrInvalidState, s.state)
	}

	s.state = SessionProposed

	return s.negotiator.Local().Encode(), nil
}

// Accept consumes the remote capabilities wire form and computes the
// agreement. An incompatible summary moves the session to the rejected
// state and returns the negotiation error.
func (s *Session) Accept(remoteWire []byte) (Capabilities, error) {
	if s.state != SessionProposed {
		return Capabilities{}, fmt.Errorf("%w: accept in state %s", errs.ErrInvalidState, s.state)
	}

	remote, err := ParseCapabilities(remoteWire)
	if err != nil {
		return Capabilities{}, s.reject(err)
	}

	agreed, err := s.negotiator.Intersect(remote)
	if err != nil {
		return Capabilities{}, s.reject(err)
	}

	s.agreed = agreed
	s.state = SessionAccepted

	return agreed, nil
}

// Reject moves the session to the rejected state with a caller-supplied
// reason, for failures outside the intersection itself.
func (s *Session) Reject(reason string) error {
	if s.state == SessionAccepted || s.state == SessionRejected {
		return fmt.Errorf("%w: reject in state %s", errs.ErrInvalidState, s.state)
	}

	s.state = SessionRejected
	s.reason = reason

	return nil
}

func (s *Session) reject(err error) error {
	s.state = SessionRejected
	s.reason = err.Error()

	return err
}
