package stats

import (
	"github.com/condor-legion/condor-stats/internal/domain"
)

// IdentitySet is everything that can represent one member in match data.
type IdentitySet struct {
	AccountIDs  map[string]struct{}
	ProviderIDs map[string]struct{}
}

// Empty reports whether the member has no linked identities at all. An
// empty set short-circuits aggregation: the data source is never queried.
func (s IdentitySet) Empty() bool {
	return len(s.AccountIDs) == 0 && len(s.ProviderIDs) == 0
}

// Matches applies the row-matching predicate: an exact account-id match, or
// a provider-id match only when the row carries no account link. The null
// check is what keeps a row linked to member A's account from being
// mis-attributed through a provider id later shared with member B.
func (s IdentitySet) Matches(row domain.PlayerMatchStatRow) bool {
	if row.AccountID != nil {
		_, ok := s.AccountIDs[*row.AccountID]
		return ok
	}
	if row.ProviderID != nil {
		_, ok := s.ProviderIDs[*row.ProviderID]
		return ok
	}
	return false
}

// AccountIDList returns the account ids as a slice, for query predicates.
func (s IdentitySet) AccountIDList() []string {
	return keyList(s.AccountIDs)
}

// ProviderIDList returns the provider ids as a slice, for query predicates.
func (s IdentitySet) ProviderIDList() []string {
	return keyList(s.ProviderIDs)
}

func keyList(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// IdentityFor builds the identity set of a single member from its linked
// accounts.
func IdentityFor(m domain.Member) IdentitySet {
	set := IdentitySet{
		AccountIDs:  make(map[string]struct{}, len(m.Accounts)),
		ProviderIDs: make(map[string]struct{}, len(m.Accounts)),
	}
	for _, acc := range m.Accounts {
		set.AccountIDs[acc.AccountID] = struct{}{}
		if acc.ProviderID != "" {
			set.ProviderIDs[acc.ProviderID] = struct{}{}
		}
	}
	return set
}

// Directory resolves arbitrary rows back to members. Provider-id collisions
// across members are a data-integrity anomaly upstream; the directory keeps
// the first owner seen in member order, which is stable because callers pass
// members sorted by id.
type Directory struct {
	byAccount  map[string]int64
	byProvider map[string]int64
	identities map[int64]IdentitySet

	unattributed int
}

// BuildDirectory indexes all members' identities for row resolution.
func BuildDirectory(members []domain.Member) *Directory {
	d := &Directory{
		byAccount:  make(map[string]int64),
		byProvider: make(map[string]int64),
		identities: make(map[int64]IdentitySet, len(members)),
	}
	for _, m := range members {
		d.identities[m.ID] = IdentityFor(m)
		for _, acc := range m.Accounts {
			if _, taken := d.byAccount[acc.AccountID]; !taken {
				d.byAccount[acc.AccountID] = m.ID
			}
			if acc.ProviderID == "" {
				continue
			}
			if _, taken := d.byProvider[acc.ProviderID]; !taken {
				d.byProvider[acc.ProviderID] = m.ID
			}
		}
	}
	return d
}

// Identity returns the prebuilt identity set for a member.
func (d *Directory) Identity(memberID int64) IdentitySet {
	return d.identities[memberID]
}

// Resolve attributes a row to a member: account id first, provider id only
// as a fallback when the row has no account link. Rows that resolve to
// nobody are counted and dropped, never fatal.
func (d *Directory) Resolve(row domain.PlayerMatchStatRow) (int64, bool) {
	if row.AccountID != nil {
		id, ok := d.byAccount[*row.AccountID]
		if !ok {
			d.unattributed++
		}
		return id, ok
	}
	if row.ProviderID != nil {
		id, ok := d.byProvider[*row.ProviderID]
		if !ok {
			d.unattributed++
		}
		return id, ok
	}
	d.unattributed++
	return 0, false
}

// Unattributed returns how many rows failed to resolve, for diagnostics.
func (d *Directory) Unattributed() int {
	return d.unattributed
}
