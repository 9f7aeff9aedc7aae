package model

// OutreachState is a step of the connection-request flow.
type OutreachState string

const (
	OutreachNotStarted    OutreachState = "not_started"
	OutreachNavigated     OutreachState = "navigated"
	OutreachInviteClicked OutreachState = "invite_clicked"
	OutreachNoteOpened    OutreachState = "note_opened"
	OutreachMessageTyped  OutreachState = "message_typed"
	OutreachSent          OutreachState = "sent"
	OutreachSkipped       OutreachState = "skipped"
)

// Terminal reports whether no further transition is possible.
func (s OutreachState) Terminal() bool {
	return s == OutreachSent || s == OutreachSkipped
}

// OutreachOutcome is the result of one automation attempt.
type OutreachOutcome struct {
	State   OutreachState   `json:"state"`
	Reason  string          `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
	Trail   []OutreachState `json:"trail"`
}

// Status maps the terminal state to the record-level status.
func (o OutreachOutcome) Status() OutreachStatus {
	if o.State == OutreachSent {
		return OutreachStatusSent
	}
	return OutreachStatusSkipped
}
