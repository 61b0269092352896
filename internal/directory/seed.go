package directory

import (
	"context"
	"fmt"
)

// DemoUsers and DemoGates are the fixed demo tenancy: two companies, one
// shared MAIN gate and one BUILDING gate per company.
var (
	DemoUsers = []User{
		{ID: "U_ALICE", Email: "alice@acme.com", CompanyID: "ACME", Active: true},
		{ID: "U_BOB", Email: "bob@globex.com", CompanyID: "GLOBEX", Active: true},
	}

	DemoGates = []Gate{
		{ID: "MAIN_GATE", Kind: GateMain},
		{ID: "BLD_ACME", Kind: GateBuilding, CompanyID: "ACME"},
		{ID: "BLD_GLOBEX", Kind: GateBuilding, CompanyID: "GLOBEX"},
	}
)

// SeedDemo upserts the demo users and gates. Existing rows are overwritten so
// the command can be re-run.
func (s *Service) SeedDemo(ctx context.Context) error {
	for i := range DemoUsers {
		u := DemoUsers[i]
		u.CreatedAt = s.now()
		if err := s.repo.SaveUser(ctx, &u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for i := range DemoGates {
		g := DemoGates[i]
		if err := s.repo.SaveGate(ctx, &g); err != nil {
			return fmt.Errorf("seed gate %s: %w", g.ID, err)
		}
	}
	s.logger.Info("seeded demo directory", "users", len(DemoUsers), "gates", len(DemoGates))
	return nil
}

// SeedRevokedDevices marks configured device ids as revoked.
func (s *Service) SeedRevokedDevices(ctx context.Context, deviceIDs []string) error {
	for _, id := range deviceIDs {
		if id == "" {
			continue
		}
		if err := s.repo.RevokeDevice(ctx, id, s.now()); err != nil {
			return fmt.Errorf("seed revoked device %s: %w", id, err)
		}
	}
	return nil
}
