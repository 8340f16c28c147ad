package status

// Derive rolls a report's line item statuses up into the report status.
//
// Precedence, first match wins:
//  1. no lines                -> draft
//  2. every line draft        -> draft
//  3. every line approved     -> approved
//  4. any line submitted      -> submitted
//  5. any line rejected       -> rejected
//  6. fallback                -> draft
//
// A submitted line dominates a rejected one: as long as any line is awaiting
// a decision the report as a whole is still awaiting a decision. Only once no
// line is submitted does a rejected line pull the report into rejected.
//
// Pure function; callers supply a snapshot of line statuses and get the same
// answer for the same input every time.
func Derive(lines []Status) Status {
	if len(lines) == 0 {
		return Draft
	}

	allDraft := true
	allApproved := true
	anySubmitted := false
	anyRejected := false

	for _, s := range lines {
		if s != Draft {
			allDraft = false
		}
		if s != Approved {
			allApproved = false
		}
		switch s {
		case Submitted:
			anySubmitted = true
		case Rejected:
			anyRejected = true
		}
	}

	switch {
	case allDraft:
		return Draft
	case allApproved:
		return Approved
	case anySubmitted:
		return Submitted
	case anyRejected:
		return Rejected
	default:
		// Unreachable over the fixed status set; kept so a bad row in the
		// store degrades to draft instead of panicking.
		return Draft
	}
}
