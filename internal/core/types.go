package core

import "hemocore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	User               = domain.User
	BloodRequest       = domain.BloodRequest
	InventoryLot       = domain.InventoryLot
	LedgerEntry        = domain.LedgerEntry
	BloodCamp          = domain.BloodCamp
	CampRegistration   = domain.CampRegistration
	BloodGroup         = domain.BloodGroup
	Role               = domain.Role
	RequestKind        = domain.RequestKind
	RequestStatus      = domain.RequestStatus
	Urgency            = domain.Urgency
	LotStatus          = domain.LotStatus
	LedgerType         = domain.LedgerType
	OrganizationType   = domain.OrganizationType
	CampStatus         = domain.CampStatus
	RegistrationStatus = domain.RegistrationStatus
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityUser    = domain.EntityUser
	EntityRequest = domain.EntityRequest
	EntityLot     = domain.EntityLot
	EntityLedger  = domain.EntityLedger
	EntityCamp    = domain.EntityCamp
)

const (
	RoleDonor        = domain.RoleDonor
	RoleHospital     = domain.RoleHospital
	RoleOrganization = domain.RoleOrganization
	RoleAdmin        = domain.RoleAdmin
)

const (
	StatusPending   = domain.StatusPending
	StatusApproved  = domain.StatusApproved
	StatusRejected  = domain.StatusRejected
	StatusCompleted = domain.StatusCompleted
)

const (
	KindDonation     = domain.KindDonation
	KindBloodRequest = domain.KindBloodRequest
)

const (
	LotAvailable = domain.LotAvailable
	LotReserved  = domain.LotReserved
	LotExpired   = domain.LotExpired
	LotUsed      = domain.LotUsed
)

const (
	LedgerDonation     = domain.LedgerDonation
	LedgerDistribution = domain.LedgerDistribution
	LedgerTransfer     = domain.LedgerTransfer
	LedgerDisposal     = domain.LedgerDisposal
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine re-exports the domain constructor for callers wiring stores.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
