package core

import (
	"testing"
	"time"
)

func TestAccessorRegistry_ResolveIsCaseInsensitive(t *testing.T) {
	for _, name := range []string{"displayName", "displayname", "DISPLAYNAME", " displayName "} {
		accessor, ok := GroupAccessors().Resolve(name)
		if !ok {
			t.Fatalf("expected %q to resolve on groups", name)
		}
		value := accessor.Get(DirectoryGroup{DisplayName: "Engineering"})
		if value != "Engineering" {
			t.Fatalf("expected display name value, got %v", value)
		}
	}
}

func TestAccessorRegistry_UnknownPropertyDoesNotResolve(t *testing.T) {
	if _, ok := GroupAccessors().Resolve("mailNickname"); ok {
		t.Fatalf("expected unknown group property to miss")
	}
	if _, ok := UserAccessors().Resolve(""); ok {
		t.Fatalf("expected empty property to miss")
	}
}

func TestAccessorRegistry_NilOptionalValuesReturnNil(t *testing.T) {
	user := DirectoryUser{ID: "u1"}

	for _, property := range []string{"accountEnabled", "employeeHireDate", "otherMails"} {
		accessor, ok := UserAccessors().Resolve(property)
		if !ok {
			t.Fatalf("expected %q to resolve on users", property)
		}
		if value := accessor.Get(user); value != nil {
			t.Fatalf("expected nil for unset %q, got %v", property, value)
		}
	}
}

func TestAccessorRegistry_TypedValues(t *testing.T) {
	enabled := true
	hired := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := DirectoryUser{
		ID:               "u1",
		AccountEnabled:   &enabled,
		EmployeeHireDate: &hired,
		OtherMails:       []string{"a@example.com", "b@example.com"},
	}

	accessor, _ := UserAccessors().Resolve("accountEnabled")
	if value, ok := accessor.Get(user).(bool); !ok || !value {
		t.Fatalf("expected accountEnabled true, got %v", accessor.Get(user))
	}

	accessor, _ = UserAccessors().Resolve("employeeHireDate")
	if value, ok := accessor.Get(user).(time.Time); !ok || !value.Equal(hired) {
		t.Fatalf("expected hire date, got %v", accessor.Get(user))
	}

	accessor, _ = UserAccessors().Resolve("otherMails")
	mails, ok := accessor.Get(user).([]string)
	if !ok || len(mails) != 2 {
		t.Fatalf("expected two other mails, got %v", accessor.Get(user))
	}
	mails[0] = "mutated"
	if user.OtherMails[0] != "a@example.com" {
		t.Fatalf("expected accessor to copy the slice")
	}
}

func TestAccessorRegistry_WrongEntityKindReturnsNil(t *testing.T) {
	accessor, ok := GroupAccessors().Resolve("displayName")
	if !ok {
		t.Fatalf("expected group displayName accessor")
	}
	if value := accessor.Get(DirectoryUser{DisplayName: "Alex"}); value != nil {
		t.Fatalf("expected nil when a user hits a group accessor, got %v", value)
	}
}

func TestRegistryForCollection(t *testing.T) {
	if RegistryForCollection(CollectionGroups).EntityKind() != EntityKindGroup {
		t.Fatalf("expected group registry for groups collection")
	}
	if RegistryForCollection(CollectionUsers).EntityKind() != EntityKindUser {
		t.Fatalf("expected user registry for users collection")
	}
	if RegistryForCollection("teams") != nil {
		t.Fatalf("expected nil registry for unknown collection")
	}
}
