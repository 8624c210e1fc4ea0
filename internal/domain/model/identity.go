package model

import "strings"

// IdentityKind distinguishes anonymous sessions from signed-in accounts.
type IdentityKind string

// Identity kinds.
const (
	KindGuest   IdentityKind = "guest"
	KindAccount IdentityKind = "account"
)

// GuestBucket is the cache bucket holding the anonymous ranking.
const GuestBucket = "guest"

const accountBucketPrefix = "account:"

// Identity is the owner of the active ranking. It is replaced wholesale on
// login and logout and decides which cache bucket and remote endpoint are
// targeted.
type Identity struct {
	Kind       IdentityKind `json:"kind"`
	AccountID  string       `json:"account_id,omitempty"`
	Credential string       `json:"-"`
}

// Guest returns the anonymous identity.
func Guest() Identity { return Identity{Kind: KindGuest} }

// Account returns an authenticated identity.
func Account(accountID, credential string) Identity {
	return Identity{Kind: KindAccount, AccountID: strings.TrimSpace(accountID), Credential: credential}
}

// IsAuthenticated reports whether the identity is an account.
func (i Identity) IsAuthenticated() bool { return i.Kind == KindAccount }

// CanSync reports whether remote writes are possible for this identity.
func (i Identity) CanSync() bool { return i.IsAuthenticated() && i.Credential != "" }

// Bucket returns the local cache bucket owned by the identity.
func (i Identity) Bucket() string {
	if i.IsAuthenticated() {
		return AccountBucket(i.AccountID)
	}
	return GuestBucket
}

// Same reports whether both identities own the same ranking. Credentials are
// ignored: a refreshed token does not change the owner.
func (i Identity) Same(other Identity) bool {
	return i.Kind == other.Kind && i.AccountID == other.AccountID
}

// Validate checks that an account identity names its account.
func (i Identity) Validate() error {
	switch i.Kind {
	case KindGuest:
		return nil
	case KindAccount:
		if i.AccountID == "" {
			return ErrMissingAccountID
		}
		return nil
	default:
		return ErrUnknownIdentityKind
	}
}

// String is safe for logs: the credential is never printed.
func (i Identity) String() string {
	if i.IsAuthenticated() {
		return string(i.Kind) + ":" + i.AccountID
	}
	return string(KindGuest)
}

// AccountBucket returns the bucket name for an account id.
func AccountBucket(accountID string) string { return accountBucketPrefix + accountID }
