package onboarding

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

type mockAccounts struct {
	updated map[string]string
	err     error
}

func (m *mockAccounts) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	if m.err != nil {
		return m.err
	}
	if m.updated == nil {
		m.updated = make(map[string]string)
	}
	m.updated[userID] = displayName
	return nil
}

type mockBonus struct {
	granted map[string]int64
	already bool
	err     error
}

func (m *mockBonus) GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.already {
		return false, nil
	}
	if m.granted == nil {
		m.granted = make(map[string]int64)
	}
	m.granted[userID] = amount
	return true, nil
}

func TestOnboardNewUser(t *testing.T) {
	accounts := &mockAccounts{}
	bonus := &mockBonus{}
	svc := NewService(accounts, bonus, rand.New(rand.NewSource(1)))

	result, err := svc.OnboardNewUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("OnboardNewUser: %v", err)
	}
	if !result.ChipsGranted {
		t.Error("expected the starting bankroll to be granted")
	}
	if result.ProfileUpdateErr != nil {
		t.Errorf("unexpected profile error: %v", result.ProfileUpdateErr)
	}
	if accounts.updated["u1"] == "" {
		t.Error("expected a generated display name")
	}
	if bonus.granted["u1"] != defaultStartingChips {
		t.Errorf("granted %d chips, want %d", bonus.granted["u1"], defaultStartingChips)
	}
}

func TestOnboardNewUserProfileFailureIsNonFatal(t *testing.T) {
	accounts := &mockAccounts{err: errors.New("profile unavailable")}
	bonus := &mockBonus{}
	svc := NewService(accounts, bonus, nil)

	result, err := svc.OnboardNewUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("profile failure must not abort onboarding: %v", err)
	}
	if result.ProfileUpdateErr == nil {
		t.Error("profile error must be surfaced in the result")
	}
	if !result.ChipsGranted {
		t.Error("chips must still be granted")
	}
}

func TestOnboardNewUserAlreadyGranted(t *testing.T) {
	svc := NewService(&mockAccounts{}, &mockBonus{already: true}, nil)

	result, err := svc.OnboardNewUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("OnboardNewUser: %v", err)
	}
	if result.ChipsGranted {
		t.Error("repeat onboarding must not grant chips again")
	}
}

func TestOnboardNewUserGrantFailure(t *testing.T) {
	svc := NewService(&mockAccounts{}, &mockBonus{err: errors.New("storage down")}, nil)

	if _, err := svc.OnboardNewUser(context.Background(), "u1"); err == nil {
		t.Fatal("grant failure must abort onboarding")
	}
}
