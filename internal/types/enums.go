package types

// Team member roles
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// User account roles
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

// Plan identifiers
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Invitation status values
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
	InvitationExpired  = "expired"
)

// Payment status values
const (
	PaymentSucceeded = "succeeded"
	PaymentPending   = "pending"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// ActivityType identifies an audit log entry kind.
type ActivityType string

const (
	ActivitySignUp            ActivityType = "SIGN_UP"
	ActivityCreateTeam        ActivityType = "CREATE_TEAM"
	ActivityInviteTeamMember  ActivityType = "INVITE_TEAM_MEMBER"
	ActivityAcceptInvitation  ActivityType = "ACCEPT_INVITATION"
	ActivityRejectInvitation  ActivityType = "REJECT_INVITATION"
	ActivityRemoveTeamMember  ActivityType = "REMOVE_TEAM_MEMBER"
	ActivityUpdateMemberRole  ActivityType = "UPDATE_MEMBER_ROLE"
	ActivityLeaveTeam         ActivityType = "LEAVE_TEAM"
	ActivityTransferOwnership ActivityType = "TRANSFER_OWNERSHIP"
	ActivityTransferTeamPlan  ActivityType = "TRANSFER_TEAM_PLAN"
	ActivityDowngradeTeamPlan ActivityType = "DOWNGRADE_TEAM_PLAN"
	ActivityDeleteAccount     ActivityType = "DELETE_ACCOUNT"
)

var ValidMemberRoles = []string{RoleOwner, RoleMember}

var ValidPlans = []string{PlanFree, PlanPro, PlanEnterprise}

// Helper functions for validation
func IsValidMemberRole(role string) bool {
	for _, r := range ValidMemberRoles {
		if r == role {
			return true
		}
	}
	return false
}

func IsValidPlan(plan string) bool {
	for _, p := range ValidPlans {
		if p == plan {
			return true
		}
	}
	return false
}

// IsPaidPlan reports whether the plan is billed.
func IsPaidPlan(plan string) bool {
	return plan == PlanPro || plan == PlanEnterprise
}
