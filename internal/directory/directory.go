// Package directory is the identity registry: users, gates and revoked devices.
package directory

import (
	"strings"
	"time"

	directoryDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/directory"
)

type GateKind string

const (
	GateMain     GateKind = "MAIN"
	GateBuilding GateKind = "BUILDING"
)

func (k GateKind) Valid() bool {
	return k == GateMain || k == GateBuilding
}

type User struct {
	ID        string    `json:"userId"`
	Email     string    `json:"email"`
	CompanyID string    `json:"companyId"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) IsActiveUser() bool {
	return u != nil && u.Active
}

// Gate is immutable reference data. CompanyID is empty for MAIN gates.
type Gate struct {
	ID        string   `json:"gateId"`
	Kind      GateKind `json:"kind"`
	CompanyID string   `json:"companyId,omitempty"`
}

func (g *Gate) IsBuilding() bool {
	return g.Kind == GateBuilding
}

// OwnedBy reports whether companyID may use the gate without a grant.
func (g *Gate) OwnedBy(companyID string) bool {
	if g.Kind == GateMain {
		return true
	}
	return g.CompanyID != "" && g.CompanyID == companyID
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func UserToDataModel(u *User) *directoryDatamodel.User {
	return &directoryDatamodel.User{
		ID:        u.ID,
		Email:     NormalizeEmail(u.Email),
		CompanyID: u.CompanyID,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

func UserFromDataModel(u *directoryDatamodel.User) *User {
	return &User{
		ID:        u.ID,
		Email:     u.Email,
		CompanyID: u.CompanyID,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

func GateToDataModel(g *Gate) *directoryDatamodel.Gate {
	dm := &directoryDatamodel.Gate{ID: g.ID, Kind: string(g.Kind)}
	if g.CompanyID != "" {
		company := g.CompanyID
		dm.CompanyID = &company
	}
	return dm
}

func GateFromDataModel(g *directoryDatamodel.Gate) *Gate {
	gate := &Gate{ID: g.ID, Kind: GateKind(g.Kind)}
	if g.CompanyID != nil {
		gate.CompanyID = *g.CompanyID
	}
	return gate
}
