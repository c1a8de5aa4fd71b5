package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const defaultInvitationTTL = 7 * 24 * time.Hour

type InvitationService interface {
	Invite(ctx context.Context, id Identity, email, role string) (*repository.Invitation, error)
	// Accept takes either the e-mailed token or the invitation id.
	Accept(ctx context.Context, id Identity, token, invitationID string) error
	Reject(ctx context.Context, id Identity, invitationID string) error
	// ExpireStale marks pending invitations past their expiry as expired.
	ExpireStale(ctx context.Context) (int, error)
}

type invitationService struct {
	*engine
	notifier Notifier
	ttl      time.Duration
}

func NewInvitationService(e *engine, notifier Notifier, ttl time.Duration) InvitationService {
	if ttl <= 0 {
		ttl = defaultInvitationTTL
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &invitationService{engine: e, notifier: notifier, ttl: ttl}
}

type nopNotifier struct{}

func (nopNotifier) SendInvitationEmail(context.Context, InvitationEmail) error     { return nil }
func (nopNotifier) SendVerificationEmail(context.Context, VerificationEmail) error { return nil }

// newInvitationToken returns a random token and the hash stored in its place.
func newInvitationToken() (token, hash string) {
	token = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	return token, hashToken(token)
}

func hashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ============================================
// Invite
// ============================================

func (s *invitationService) Invite(ctx context.Context, id Identity, email, role string) (*repository.Invitation, error) {
	email = normalizeEmail(email)
	if !types.IsValidMemberRole(role) {
		return nil, validationError("role must be one of %s", strings.Join(types.ValidMemberRoles, ", "))
	}

	var (
		inv      *repository.Invitation
		team     *repository.Team
		inviter  *repository.User
		existing *repository.User
	)
	err := s.within(ctx, func(r *repository.Repos, _ *afterCommit) error {
		var err error
		inviter, err = r.Users.FindByID(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("find inviter: %w", err)
		}
		if inviter == nil {
			return notFound("user not found")
		}

		current, err := s.currentMembership(ctx, r, id.UserID)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound("you do not belong to a team")
		}
		if team, err = lockTeam(ctx, r, current.TeamID); err != nil {
			return err
		}
		if current.Role != types.RoleOwner {
			return forbidden("only team owners can invite members")
		}
		if sameEmail(inviter.Email, email) {
			return conflict("you cannot invite yourself")
		}

		existing, err = r.Users.FindByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("find invitee: %w", err)
		}
		if existing != nil {
			member, err := r.Teams.FindMember(ctx, team.ID, existing.ID)
			if err != nil {
				return fmt.Errorf("find member: %w", err)
			}
			if member != nil {
				return conflict("%s is already a member of this team", email)
			}
		}

		pending, err := r.Invitations.FindPending(ctx, team.ID, email)
		if err != nil {
			return fmt.Errorf("find pending invitation: %w", err)
		}
		if pending != nil {
			return conflict("an invitation for %s is already pending", email)
		}

		count, err := r.Teams.CountMembers(ctx, team.ID)
		if err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		if err := s.checkCapacity(team, count); err != nil {
			return err
		}

		token, hash := newInvitationToken()
		inv = &repository.Invitation{
			TeamID:          team.ID,
			InvitedByUserID: inviter.ID,
			Email:           email,
			Role:            role,
			TokenHash:       hash,
			Status:          types.InvitationPending,
			ExpiresAt:       s.now().Add(s.ttl),
		}
		if err := r.Invitations.Create(ctx, inv); err != nil {
			if repository.IsUniqueViolation(err) {
				return conflict("an invitation for %s is already pending", email)
			}
			return fmt.Errorf("create invitation: %w", err)
		}
		inv.Token = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := InvitationEmail{
		To:             email,
		InviterName:    inviter.Name,
		TeamName:       team.Name,
		Role:           role,
		Token:          inv.Token,
		IsExistingUser: existing != nil,
	}
	if err := s.notifier.SendInvitationEmail(ctx, msg); err != nil {
		s.log.Errorw("Invitation email failed, withdrawing invitation",
			"invitation_id", inv.ID, "team_id", team.ID, "error", err)
		withdrawn := false
		if derr := s.store.WithinTx(ctx, func(r *repository.Repos) error {
			var err error
			withdrawn, err = r.Invitations.DeletePending(ctx, inv.ID)
			return err
		}); derr != nil {
			s.log.Errorw("Failed to withdraw invitation", "invitation_id", inv.ID, "error", derr)
			return nil, newError(CodeExternalService, "the invitation email could not be sent, please try again")
		}
		if withdrawn {
			return nil, newError(CodeExternalService, "the invitation email could not be sent, please try again")
		}
		// Already answered through the pending list; the invitation stands.
		s.log.Warnw("Invitation answered before its email failed, keeping it",
			"invitation_id", inv.ID, "team_id", team.ID)
	}

	if err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		return s.audit(ctx, r, team.ID, inviter.ID, types.ActivityInviteTeamMember, id.ipAddress())
	}); err != nil {
		s.log.Warnw("Failed to log invitation", "invitation_id", inv.ID, "error", err)
	}
	if existing != nil {
		s.events.InvitationReceived(existing.ID, inv.ID, team.Name, role)
	}

	s.log.Infow("Invitation sent", "invitation_id", inv.ID, "team_id", team.ID, "user_id", inviter.ID)
	return inv, nil
}

// ============================================
// Accept
// ============================================

func (s *invitationService) Accept(ctx context.Context, id Identity, token, invitationID string) error {
	byToken := token != ""

	var adoptedEmail string
	var user *repository.User
	err := s.within(ctx, func(r *repository.Repos, hooks *afterCommit) error {
		adoptedEmail = ""

		inv, err := s.loadInvitation(ctx, r, token, invitationID)
		if err != nil {
			return err
		}
		if err := s.checkUsable(inv); err != nil {
			return err
		}

		user, err = r.Users.FindByID(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return notFound("user not found")
		}
		if inv.InvitedByUserID == user.ID {
			return conflict("you cannot accept an invitation you sent")
		}

		team, err := lockTeam(ctx, r, inv.TeamID)
		if err != nil {
			return err
		}
		members, err := findMembers(ctx, r, team.ID)
		if err != nil {
			return err
		}
		if memberOf(members, user.ID) != nil {
			return conflict("you are already a member of this team")
		}

		memberships, err := r.Teams.FindMemberships(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("find memberships: %w", err)
		}
		for _, m := range memberships {
			if m.Shared() {
				return conflict("you already belong to another team; leave your current team before accepting this invitation")
			}
		}
		if len(members) == 1 {
			if err := s.checkHostFree(ctx, r, members[0]); err != nil {
				return err
			}
		}
		if err := s.checkCapacity(team, len(members)); err != nil {
			return err
		}

		if adoptedEmail, err = s.reconcileEmail(ctx, r, user, inv, byToken); err != nil {
			return err
		}

		member := &repository.TeamMember{TeamID: team.ID, UserID: user.ID, Role: inv.Role}
		if err := r.Teams.AddMember(ctx, member); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("you are already a member of this team")
			}
			return fmt.Errorf("add member: %w", err)
		}
		acceptedAt := s.now()
		if err := r.Invitations.UpdateStatus(ctx, inv.ID, types.InvitationAccepted, &acceptedAt); err != nil {
			return fmt.Errorf("mark invitation accepted: %w", err)
		}
		if err := s.audit(ctx, r, team.ID, user.ID, types.ActivityAcceptInvitation, id.ipAddress()); err != nil {
			return err
		}

		hooks.add(func() { s.events.MemberAdded(team.ID, member.UserID, member.Role) })
		s.log.Infow("Invitation accepted", "invitation_id", inv.ID, "team_id", team.ID, "user_id", user.ID)
		return nil
	})
	if err != nil {
		return err
	}

	if adoptedEmail != "" && !byToken {
		if err := s.notifier.SendVerificationEmail(ctx, VerificationEmail{To: adoptedEmail, Name: user.Name}); err != nil {
			s.log.Warnw("Verification email failed", "user_id", user.ID, "error", err)
		}
	}
	return nil
}

func (s *invitationService) loadInvitation(ctx context.Context, r *repository.Repos, token, invitationID string) (*repository.Invitation, error) {
	var (
		inv *repository.Invitation
		err error
	)
	if token != "" {
		inv, err = r.Invitations.FindByTokenHash(ctx, hashToken(token))
	} else {
		inv, err = r.Invitations.FindByID(ctx, invitationID)
	}
	if err != nil {
		return nil, fmt.Errorf("find invitation: %w", err)
	}
	if inv == nil {
		return nil, notFound("invitation not found")
	}
	return inv, nil
}

func (s *invitationService) checkUsable(inv *repository.Invitation) error {
	switch inv.Status {
	case types.InvitationAccepted, types.InvitationRejected:
		return conflict("this invitation has already been %s", inv.Status)
	}
	if inv.ExpiredAt(s.now()) {
		return newError(CodeExpired, "this invitation has expired, ask for a new one")
	}
	return nil
}

// checkHostFree stops a personal team from becoming shared while its owner
// already belongs to another shared team.
func (s *invitationService) checkHostFree(ctx context.Context, r *repository.Repos, host *repository.TeamMember) error {
	memberships, err := r.Teams.FindMemberships(ctx, host.UserID)
	if err != nil {
		return fmt.Errorf("find host memberships: %w", err)
	}
	for _, m := range memberships {
		if m.Shared() && m.TeamID != host.TeamID {
			return conflict("the owner of this team has since joined another team; ask for a new invitation")
		}
	}
	return nil
}

// reconcileEmail makes the accepting user's address agree with the invitation.
// It returns the address when it was adopted from the invitation.
func (s *invitationService) reconcileEmail(
	ctx context.Context,
	r *repository.Repos,
	user *repository.User,
	inv *repository.Invitation,
	verified bool,
) (string, error) {
	if user.Email != nil && strings.TrimSpace(*user.Email) != "" {
		if !sameEmail(user.Email, inv.Email) {
			return "", newError(CodeMismatch, "this invitation was sent to a different email address")
		}
		return "", nil
	}

	other, err := r.Users.FindByEmail(ctx, inv.Email)
	if err != nil {
		return "", fmt.Errorf("find email owner: %w", err)
	}
	if other != nil && other.ID != user.ID {
		if other.EmailVerified {
			return "", conflict("%s is already verified on another account", inv.Email)
		}
		return "", conflict("%s is already used by another account", inv.Email)
	}
	if err := r.Users.UpdateEmail(ctx, user.ID, inv.Email, verified); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", conflict("%s is already used by another account", inv.Email)
		}
		return "", fmt.Errorf("adopt email: %w", err)
	}
	return inv.Email, nil
}

// ============================================
// Reject
// ============================================

func (s *invitationService) Reject(ctx context.Context, id Identity, invitationID string) error {
	return s.within(ctx, func(r *repository.Repos, _ *afterCommit) error {
		inv, err := s.loadInvitation(ctx, r, "", invitationID)
		if err != nil {
			return err
		}
		user, err := r.Users.FindByID(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return notFound("user not found")
		}
		if !sameEmail(user.Email, inv.Email) {
			return forbidden("this invitation was not sent to you")
		}
		if inv.Status != types.InvitationPending {
			return conflict("this invitation is already %s", inv.Status)
		}

		if err := r.Invitations.UpdateStatus(ctx, inv.ID, types.InvitationRejected, nil); err != nil {
			return fmt.Errorf("mark invitation rejected: %w", err)
		}
		if err := s.audit(ctx, r, inv.TeamID, user.ID, types.ActivityRejectInvitation, id.ipAddress()); err != nil {
			return err
		}
		s.log.Infow("Invitation rejected", "invitation_id", inv.ID, "team_id", inv.TeamID, "user_id", user.ID)
		return nil
	})
}

// ============================================
// Expiry
// ============================================

func (s *invitationService) ExpireStale(ctx context.Context) (int, error) {
	var n int
	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		var err error
		n, err = r.Invitations.ExpirePending(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("expire invitations: %w", err)
	}
	return n, nil
}
