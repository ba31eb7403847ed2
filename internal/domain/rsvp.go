package domain

import "strings"

// RSVPStatus is an invitee's answer
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPAccepted, RSVPDeclined:
		return true
	}
	return false
}

// ParseRSVPResponse accepts only the answers an invitee may give
func ParseRSVPResponse(s string) (RSVPStatus, error) {
	switch st := RSVPStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RSVPAccepted, RSVPDeclined:
		return st, nil
	}
	return "", ErrInvalidRSVPStatus
}

// NextRSVP applies the state machine: pending moves once to accepted or declined,
// repeating the same answer is a no-op and any other change is rejected.
func NextRSVP(current, target RSVPStatus) (changed bool, err error) {
	if target != RSVPAccepted && target != RSVPDeclined {
		return false, ErrInvalidRSVPStatus
	}
	switch current {
	case "", RSVPPending:
		return true, nil
	case target:
		return false, nil
	default:
		return false, ErrRSVPFinal
	}
}

// MyStatus is the caller's relation to an event in invitation listings
type MyStatus string

const (
	MyStatusOrganizer  MyStatus = "organizer"
	MyStatusPending    MyStatus = MyStatus(RSVPPending)
	MyStatusAccepted   MyStatus = MyStatus(RSVPAccepted)
	MyStatusDeclined   MyStatus = MyStatus(RSVPDeclined)
	MyStatusNotInvited MyStatus = "not_invited"
)
