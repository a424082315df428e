package model

import "fmt"

// OutcomeKind is the result class of one item transfer.
type OutcomeKind string

const (
	OutcomeSent     OutcomeKind = "sent"     // plain text posted
	OutcomeRelayed  OutcomeKind = "relayed"  // media re-posted by reference, no bytes moved
	OutcomeUploaded OutcomeKind = "uploaded" // downloaded and re-uploaded
	OutcomeSkipped  OutcomeKind = "skipped"  // source missing or inaccessible
	OutcomeFailed   OutcomeKind = "failed"
)

// TransferOutcome is the structured result of one pipeline run. Per-item
// failures are represented here, never as errors escaping the batch loop.
type TransferOutcome struct {
	Kind      OutcomeKind
	LargeFile bool
	Reason    string // set for failed outcomes
}

func Sent() TransferOutcome     { return TransferOutcome{Kind: OutcomeSent} }
func Relayed() TransferOutcome  { return TransferOutcome{Kind: OutcomeRelayed} }
func Uploaded(large bool) TransferOutcome {
	return TransferOutcome{Kind: OutcomeUploaded, LargeFile: large}
}
func Skipped() TransferOutcome { return TransferOutcome{Kind: OutcomeSkipped} }
func Failed(reason string) TransferOutcome {
	return TransferOutcome{Kind: OutcomeFailed, Reason: reason}
}

// Counted reports whether the outcome increments the job's success count.
func (o TransferOutcome) Counted() bool {
	switch o.Kind {
	case OutcomeSent, OutcomeRelayed, OutcomeUploaded:
		return true
	}
	return false
}

// Describe renders a short user-facing status line.
func (o TransferOutcome) Describe() string {
	switch o.Kind {
	case OutcomeSent:
		return "Sent."
	case OutcomeRelayed:
		return "Sent directly."
	case OutcomeUploaded:
		if o.LargeFile {
			return "Done (large file)."
		}
		return "Done."
	case OutcomeSkipped:
		return "Message not found, skipped."
	case OutcomeFailed:
		if o.Reason != "" {
			return fmt.Sprintf("Failed: %s", o.Reason)
		}
		return "Failed."
	}
	return string(o.Kind)
}
