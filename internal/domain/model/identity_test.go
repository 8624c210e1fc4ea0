package model_test

import (
	"testing"

	model "github.com/okian/cinerank/internal/domain/model"
)

func TestIdentity(t *testing.T) {
	tests := []struct {
		name     string
		id       model.Identity
		bucket   string
		auth     bool
		canSync  bool
		validErr error
	}{
		{name: "guest", id: model.Guest(), bucket: "guest"},
		{name: "account with credential", id: model.Account("u-1", "tok"), bucket: "account:u-1", auth: true, canSync: true},
		{name: "account without credential", id: model.Account("u-2", ""), bucket: "account:u-2", auth: true},
		{name: "account without id", id: model.Account("  ", "tok"), bucket: "account:", auth: true, canSync: true, validErr: model.ErrMissingAccountID},
		{name: "unknown kind", id: model.Identity{Kind: "robot"}, bucket: "guest", validErr: model.ErrUnknownIdentityKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Bucket(); got != tt.bucket {
				t.Errorf("Bucket() = %q, want %q", got, tt.bucket)
			}
			if got := tt.id.IsAuthenticated(); got != tt.auth {
				t.Errorf("IsAuthenticated() = %v, want %v", got, tt.auth)
			}
			if got := tt.id.CanSync(); got != tt.canSync {
				t.Errorf("CanSync() = %v, want %v", got, tt.canSync)
			}
			if err := tt.id.Validate(); err != tt.validErr {
				t.Errorf("Validate() = %v, want %v", err, tt.validErr)
			}
		})
	}
}

func TestIdentitySame(t *testing.T) {
	if !model.Account("u-1", "old").Same(model.Account("u-1", "new")) {
		t.Error("refreshed credential should keep the same owner")
	}
	if model.Account("u-1", "tok").Same(model.Account("u-2", "tok")) {
		t.Error("different accounts must not be the same owner")
	}
	if model.Guest().Same(model.Account("", "")) {
		t.Error("guest and account must differ")
	}
}

func TestIdentityStringHidesCredential(t *testing.T) {
	s := model.Account("u-1", "secret-token").String()
	if s != "account:u-1" {
		t.Errorf("String() = %q", s)
	}
}
