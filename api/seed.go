package api

import (
	"context"
	"log/slog"

	"github.com/ShuVe1/site-agreement/access"
	"github.com/ShuVe1/site-agreement/ledger"
	"github.com/ShuVe1/site-agreement/store"
)

// defaultUsers are created on first start so each role has a login.
var defaultUsers = []ledger.User{
	{Username: "accountant", Password: "accountant123", Role: access.RoleAccountant, FullName: "Бухгалтер"},
	{Username: "specialist", Password: "specialist123", Role: access.RoleContractSpecialist, FullName: "Договорной специалист"},
	{Username: "manager", Password: "manager123", Role: access.RoleManager, FullName: "Руководитель"},
}

// EnsureDefaultUsers seeds the three stock users when the store is empty.
// An already-populated store is left untouched.
func EnsureDefaultUsers(ctx context.Context, st store.Store, log *slog.Logger) error {
	users, err := st.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	for _, u := range defaultUsers {
		if _, err := st.AddUser(ctx, u); err != nil {
			return err
		}
	}
	log.Info("seeded default users", slog.Int("count", len(defaultUsers)))
	return nil
}
