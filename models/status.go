package models

// Status compatibility rules for grouping reports.
//
// Reports may be merged only if they all share one status, or if their
// statuses are a mix of DA_VERIFICARE and ATTIVA. In the mixed case every
// member is promoted to ATTIVA: once one report of the same physical problem
// has been verified, its pending duplicates are activated with it. A RISOLTA
// or SCARTATA report is never silently reactivated by a merge.

// MergeDecision is the outcome of CanMerge.
type MergeDecision struct {
	Compatible    bool
	PromoteAttiva bool
}

// CanMerge decides whether reports with the given statuses can form a group.
func CanMerge(stati []string) MergeDecision {
	distinct := map[string]bool{}
	for _, s := range stati {
		distinct[s] = true
	}
	if len(distinct) <= 1 {
		return MergeDecision{Compatible: true}
	}
	for s := range distinct {
		if s != StatoDaVerificare && s != StatoAttiva {
			return MergeDecision{}
		}
	}
	return MergeDecision{Compatible: true, PromoteAttiva: true}
}

// AttachDecision is the outcome of CanAttachSingle.
type AttachDecision struct {
	Allowed        bool
	ResultingStato string
}

// CanAttachSingle decides whether a single report can join a group whose
// current status is that of any one existing member. Groups are
// status-homogeneous modulo the DA_VERIFICARE/ATTIVA mix, so one
// representative member suffices.
func CanAttachSingle(statoSegnalazione, statoGruppo string) AttachDecision {
	if statoSegnalazione == statoGruppo {
		return AttachDecision{Allowed: true, ResultingStato: statoSegnalazione}
	}
	if statoSegnalazione == StatoDaVerificare && statoGruppo == StatoAttiva {
		return AttachDecision{Allowed: true, ResultingStato: StatoAttiva}
	}
	return AttachDecision{}
}
