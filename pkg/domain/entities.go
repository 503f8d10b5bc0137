// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by hemocore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityUser identifies a user record (donor, hospital, organization, admin).
	EntityUser EntityType = "user"
	// EntityRequest identifies a blood request record (donation offer or distribution request).
	EntityRequest EntityType = "blood_request"
	// EntityLot identifies an inventory lot record.
	EntityLot EntityType = "inventory_lot"
	// EntityLedger identifies an append-only ledger entry.
	EntityLedger EntityType = "ledger_entry"
	// EntityCamp identifies a blood camp record.
	EntityCamp EntityType = "blood_camp"
)

// Role enumerates the account roles recognised by the API surface.
type Role string

// Account roles. Organizations require admin approval before acting on requests.
const (
	RoleDonor        Role = "donor"
	RoleHospital     Role = "hospital"
	RoleOrganization Role = "organization"
	RoleAdmin        Role = "admin"
)

// BloodGroup is one of the eight ABO/Rh blood groups.
type BloodGroup string

// The eight ABO/Rh groups.
const (
	GroupAPos  BloodGroup = "A+"
	GroupANeg  BloodGroup = "A-"
	GroupBPos  BloodGroup = "B+"
	GroupBNeg  BloodGroup = "B-"
	GroupABPos BloodGroup = "AB+"
	GroupABNeg BloodGroup = "AB-"
	GroupOPos  BloodGroup = "O+"
	GroupONeg  BloodGroup = "O-"
)

// BloodGroups lists all valid groups in display order. Projections zero-fill
// against this list.
func BloodGroups() []BloodGroup {
	return []BloodGroup{GroupAPos, GroupANeg, GroupBPos, GroupBNeg, GroupABPos, GroupABNeg, GroupOPos, GroupONeg}
}

// Valid reports whether g is one of the eight recognised groups.
func (g BloodGroup) Valid() bool {
	switch g {
	case GroupAPos, GroupANeg, GroupBPos, GroupBNeg, GroupABPos, GroupABNeg, GroupOPos, GroupONeg:
		return true
	}
	return false
}

// RequestKind distinguishes donation offers from distribution requests.
type RequestKind string

// Request kinds. A donation increases inventory on approval; a blood request
// consumes it.
const (
	KindDonation     RequestKind = "donation"
	KindBloodRequest RequestKind = "blood_request"
)

// Urgency grades a blood request.
type Urgency string

// Urgency levels, defaulting to medium at intake.
const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// LotStatus describes the availability of an inventory lot.
type LotStatus string

// Lot statuses. A lot becomes used exactly when its unit count reaches zero.
const (
	LotAvailable LotStatus = "available"
	LotReserved  LotStatus = "reserved"
	LotExpired   LotStatus = "expired"
	LotUsed      LotStatus = "used"
)

// LedgerType classifies a ledger entry.
type LedgerType string

// Ledger entry types. Transfer and disposal are declared for schema parity but
// no operation currently produces them.
const (
	LedgerDonation     LedgerType = "donation"
	LedgerDistribution LedgerType = "distribution"
	LedgerTransfer     LedgerType = "transfer"
	LedgerDisposal     LedgerType = "disposal"
)

// OrganizationType categorises registered organizations.
type OrganizationType string

// Organization categories carried over from registration.
const (
	OrgBloodBank          OrganizationType = "blood_bank"
	OrgRedCross           OrganizationType = "red_cross"
	OrgNGO                OrganizationType = "ngo"
	OrgHospitalAffiliated OrganizationType = "hospital_affiliated"
)

// CampStatus describes the lifecycle of a blood camp.
type CampStatus string

// Camp statuses.
const (
	CampUpcoming  CampStatus = "upcoming"
	CampOngoing   CampStatus = "ongoing"
	CampCompleted CampStatus = "completed"
	CampCancelled CampStatus = "cancelled"
)

// RegistrationStatus tracks a donor's participation in a camp.
type RegistrationStatus string

// Camp registration statuses.
const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationAttended   RegistrationStatus = "attended"
	RegistrationDonated    RegistrationStatus = "donated"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents any account: donor, hospital, organization, or admin.
// Role-specific fields are populated according to Role and validated at
// registration time.
type User struct {
	Base
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`

	// Donor fields.
	BloodGroup         BloodGroup `json:"blood_group,omitempty"`
	Age                int        `json:"age,omitempty"`
	WeightKG           float64    `json:"weight_kg,omitempty"`
	LastDonation       *time.Time `json:"last_donation,omitempty"`
	BloodGroupVerified bool       `json:"blood_group_verified"`
	MedicalHistory     string     `json:"medical_history,omitempty"`

	// Hospital fields.
	HospitalName  string `json:"hospital_name,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`

	// Organization fields.
	OrganizationName string           `json:"organization_name,omitempty"`
	OrganizationType OrganizationType `json:"organization_type,omitempty"`
	Approved         bool             `json:"approved"`
}

// BloodRequest is a donor's donation offer or a donor/hospital distribution
// request. Created pending; claimed by exactly one organization on resolution;
// never deleted.
type BloodRequest struct {
	Base
	RequesterID    string        `json:"requester_id"`
	Kind           RequestKind   `json:"kind"`
	BloodGroup     BloodGroup    `json:"blood_group"`
	Units          int           `json:"units"`
	Urgency        Urgency       `json:"urgency"`
	Reason         string        `json:"reason"`
	PatientName    string        `json:"patient_name,omitempty"`
	HospitalName   string        `json:"hospital_name,omitempty"`
	ContactNumber  string        `json:"contact_number,omitempty"`
	Status         RequestStatus `json:"status"`
	OrganizationID *string       `json:"organization_id,omitempty"`
	RequiredBy     *time.Time    `json:"required_by,omitempty"`
	DecisionNotes  string        `json:"decision_notes,omitempty"`
}

// InventoryLot is a quantity of one blood group held by one organization with
// a shared expiry and status. Units are never negative.
type InventoryLot struct {
	Base
	OrganizationID string     `json:"organization_id"`
	BloodGroup     BloodGroup `json:"blood_group"`
	Units          int        `json:"units"`
	ExpiresAt      time.Time  `json:"expires_at"`
	DonorID        *string    `json:"donor_id,omitempty"`
	CollectedAt    time.Time  `json:"collected_at"`
	Status         LotStatus  `json:"status"`
}

// LedgerEntry is the append-only audit record reconciling request and
// inventory changes. Exactly one entry exists per approved request that moved
// units; entries are never updated or deleted.
type LedgerEntry struct {
	Base
	OrganizationID string     `json:"organization_id"`
	Type           LedgerType `json:"type"`
	BloodGroup     BloodGroup `json:"blood_group"`
	Units          int        `json:"units"`
	DonorID        *string    `json:"donor_id,omitempty"`
	RecipientID    *string    `json:"recipient_id,omitempty"`
	RequestID      string     `json:"request_id"`
	Note           string     `json:"note,omitempty"`
	RecordedAt     time.Time  `json:"recorded_at"`
}

// CampRegistration records one donor's sign-up inside a camp.
type CampRegistration struct {
	DonorID      string             `json:"donor_id"`
	RegisteredAt time.Time          `json:"registered_at"`
	Status       RegistrationStatus `json:"status"`
}

// BloodCamp is an organization-run collection drive with embedded donor
// registrations.
type BloodCamp struct {
	Base
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	OrganizerID    string             `json:"organizer_id"`
	Date           time.Time          `json:"date"`
	StartTime      string             `json:"start_time"`
	EndTime        string             `json:"end_time"`
	Venue          string             `json:"venue"`
	Address        string             `json:"address"`
	ContactPerson  string             `json:"contact_person"`
	ContactNumber  string             `json:"contact_number"`
	TargetUnits    int                `json:"target_units"`
	CollectedUnits int                `json:"collected_units"`
	Requirements   string             `json:"requirements,omitempty"`
	Status         CampStatus         `json:"status"`
	Registrations  []CampRegistration `json:"registrations"`
}

// Change describes a mutation applied to an entity during a transaction.
// Before and After carry JSON snapshots of the entity state.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured for rule evaluation.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
