package models

// Role separates citizens from the authorities who work the reports
type Role string

// User roles
const (
	RoleCitizen   Role = "CITIZEN"
	RoleAuthority Role = "AUTHORITY"
)

// Tier is the named bracket derived from a trust score
type Tier string

// Trust tiers, lowest first
const (
	TierNewUser         Tier = "NEW_USER"
	TierContributor     Tier = "CONTRIBUTOR"
	TierTrustedReporter Tier = "TRUSTED_REPORTER"
	TierCivicGuardian   Tier = "CIVIC_GUARDIAN"
)

// User holds the structure for the users collection in mongo. Only the trust
// fields are written by this service; identity is owned elsewhere.
type User struct {
	ID              string `json:"_id" bson:"_id"`
	Name            string `json:"name" bson:"name"`
	Role            Role   `json:"role" bson:"role"`
	TrustScore      int    `json:"trustScore" bson:"trustScore"`
	Tier            Tier   `json:"tier" bson:"tier"`
	ReportsFiled    int    `json:"reportsFiled" bson:"reportsFiled"`
	ReportsResolved int    `json:"reportsResolved" bson:"reportsResolved"`
}

// IsAuthority is true for users allowed to drive the report lifecycle
func (u User) IsAuthority() bool {
	return u.Role == RoleAuthority
}
